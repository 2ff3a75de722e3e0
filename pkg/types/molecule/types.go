// Package molecule defines molecule-domain Data Transfer Objects and
// enumerations used across every layer of MolScore.  No domain logic lives
// here — only plain data types that are safe to import from any layer without
// creating circular dependencies.
package molecule

import (
	"github.com/turtacn/MolScore/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// FingerprintType — molecular fingerprint algorithm identifier
// ─────────────────────────────────────────────────────────────────────────────

// FingerprintType identifies which fingerprint algorithm was used to generate
// a particular bit-vector for a molecule.
type FingerprintType string

const (
	// FPMorgan is the circular Morgan / ECFP fingerprint (default radius 2 → ECFP4).
	FPMorgan FingerprintType = "morgan"

	// FPMACCS is the 166-bit MACCS structural keys fingerprint.
	FPMACCS FingerprintType = "maccs"

	// FPTopological is the Daylight-style topological path fingerprint.
	FPTopological FingerprintType = "topological"
)

// ─────────────────────────────────────────────────────────────────────────────
// MolecularProperties — physicochemical descriptor set
// ─────────────────────────────────────────────────────────────────────────────

// MolecularProperties holds computed physicochemical descriptors for a molecule.
type MolecularProperties struct {
	// MolecularWeight is the average molecular weight in g/mol.
	MolecularWeight float64 `json:"molecular_weight"`

	// LogP is the calculated octanol-water partition coefficient (Crippen method).
	LogP float64 `json:"log_p"`

	// TPSA is the topological polar surface area in Å².
	TPSA float64 `json:"tpsa"`

	// HBondDonors is the number of hydrogen-bond donor groups (NH, OH).
	HBondDonors int `json:"h_bond_donors"`

	// HBondAcceptors is the number of hydrogen-bond acceptor groups (N, O).
	HBondAcceptors int `json:"h_bond_acceptors"`

	// RotatableBonds is the count of non-terminal, non-ring single bonds.
	RotatableBonds int `json:"rotatable_bonds"`

	// AromaticRings is the count of aromatic ring systems in the molecule.
	AromaticRings int `json:"aromatic_rings"`
}

// ─────────────────────────────────────────────────────────────────────────────
// MoleculeDTO — cross-layer data transfer object for a molecule
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeDTO is the canonical molecule representation passed between the
// application, interface, and client layers.  It embeds common.BaseEntity so
// that it carries audit metadata without duplicating field definitions.
//
// Fingerprints are stored as raw byte slices keyed by FingerprintType so that
// the transport layer can choose to include or omit them depending on the use
// case (HTTP responses omit fingerprints; similarity evaluators include them).
type MoleculeDTO struct {
	common.BaseEntity

	// SMILES is the molecule's SMILES string as supplied by the generator.
	SMILES string `json:"smiles"`

	// Name is an optional display name for the molecule.
	Name string `json:"name,omitempty"`

	// Properties contains computed physicochemical descriptors.
	Properties MolecularProperties `json:"properties"`

	// Fingerprints maps each computed fingerprint algorithm to its byte-encoded
	// bit-vector.  Omitted from JSON responses by default.
	Fingerprints map[FingerprintType][]byte `json:"fingerprints,omitempty"`
}

//Personal.AI order the ending
