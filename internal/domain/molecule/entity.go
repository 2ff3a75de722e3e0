// Package molecule provides the core domain model for molecular entities in
// the MolScore engine.  The Molecule aggregate root encapsulates the SMILES
// structure, computed physicochemical descriptors, and fingerprints that the
// scoring components consume.
package molecule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	mtypes "github.com/turtacn/MolScore/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for all molecule-related domain events.
type DomainEvent interface {
	EventType() string
}

// MoleculeCreatedEvent is published when a new molecule is successfully created.
type MoleculeCreatedEvent struct {
	MoleculeID common.ID
	SMILES     string
}

func (e MoleculeCreatedEvent) EventType() string { return "molecule.created" }

// FingerprintCalculatedEvent is published when a fingerprint is computed.
type FingerprintCalculatedEvent struct {
	MoleculeID      common.ID
	FingerprintType mtypes.FingerprintType
}

func (e FingerprintCalculatedEvent) EventType() string { return "molecule.fingerprint_calculated" }

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// MolecularProperties is a value object holding computed physicochemical
// descriptors for a molecule.
type MolecularProperties struct {
	MolecularWeight float64 `json:"molecular_weight"`
	LogP            float64 `json:"log_p"`
	TPSA            float64 `json:"tpsa"`
	HBondDonors     int     `json:"h_bond_donors"`
	HBondAcceptors  int     `json:"h_bond_acceptors"`
	RotatableBonds  int     `json:"rotatable_bonds"`
	AromaticRings   int     `json:"aromatic_rings"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is the aggregate root for all chemical structure data in the engine.
// It encapsulates the SMILES notation as supplied by the generator, computed
// descriptors, and fingerprints for similarity scoring.
type Molecule struct {
	common.BaseEntity

	// SMILES is the structure as supplied by the generator.
	SMILES string `json:"smiles"`

	// CanonicalSMILES is the whitespace-normalised form used as a cache key.
	CanonicalSMILES string `json:"canonical_smiles"`

	// Name is an optional display name.
	Name string `json:"name,omitempty"`

	// Properties contains computed physicochemical descriptors.
	Properties MolecularProperties `json:"properties"`

	// Fingerprints for similarity scoring (keyed by fingerprint type).
	Fingerprints map[mtypes.FingerprintType]*Fingerprint `json:"fingerprints,omitempty"`

	// Domain events (not persisted, cleared after publishing)
	events []DomainEvent
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory Function
// ─────────────────────────────────────────────────────────────────────────────

var (
	// validSMILESChars defines the allowed character set for SMILES notation.
	// This is a simplified check; full SMILES validation requires a parser.
	validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#/\\%.*]+$`)
)

// NewMolecule constructs a new Molecule aggregate from a SMILES string.
// It performs basic SMILES validation (character set, bracket matching,
// ring-closure pairing), normalises the SMILES, computes descriptors, and
// assigns a new UUID.
//
// Returns an error if the SMILES string is invalid; callers scoring batches
// should treat that molecule as failed rather than aborting the batch.
func NewMolecule(smiles string) (*Molecule, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New(errors.CodeMoleculeInvalidSMILES, "SMILES string cannot be empty")
	}

	// Basic character set validation
	if !validSMILESChars.MatchString(smiles) {
		return nil, errors.New(errors.CodeMoleculeInvalidSMILES, "SMILES contains invalid characters").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	// Bracket matching validation
	if err := validateBrackets(smiles); err != nil {
		return nil, err
	}

	// Ring-closure digit pairing validation
	if err := validateRingClosures(smiles); err != nil {
		return nil, err
	}

	mol := &Molecule{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		SMILES:          smiles,
		CanonicalSMILES: smiles,
		Fingerprints:    make(map[mtypes.FingerprintType]*Fingerprint),
	}

	if err := mol.CalculateProperties(); err != nil {
		return nil, err
	}

	mol.events = append(mol.events, MoleculeCreatedEvent{
		MoleculeID: mol.ID,
		SMILES:     mol.SMILES,
	})

	return mol, nil
}

// validateBrackets checks that all brackets in the SMILES string are balanced.
func validateBrackets(smiles string) error {
	var stack []rune
	pairs := map[rune]rune{
		'(': ')',
		'[': ']',
	}
	closers := map[rune]rune{
		')': '(',
		']': '[',
	}

	for _, ch := range smiles {
		if _, ok := pairs[ch]; ok {
			stack = append(stack, ch)
		} else if expected, ok := closers[ch]; ok {
			if len(stack) == 0 || stack[len(stack)-1] != expected {
				return errors.New(errors.CodeMoleculeInvalidSMILES, "unmatched brackets in SMILES").
					WithDetail(fmt.Sprintf("smiles=%s", smiles))
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return errors.New(errors.CodeMoleculeInvalidSMILES, "unclosed brackets in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	return nil
}

// validateRingClosures checks that every ring-closure digit appears an even
// number of times.  Digits inside square brackets (isotopes, charges) are not
// ring closures and are skipped.
func validateRingClosures(smiles string) error {
	counts := make(map[rune]int)
	inBracket := false
	for _, ch := range smiles {
		switch {
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case !inBracket && ch >= '0' && ch <= '9':
			counts[ch]++
		}
	}
	for digit, n := range counts {
		if n%2 != 0 {
			return errors.New(errors.CodeMoleculeInvalidSMILES, "unpaired ring-closure digit in SMILES").
				WithDetail(fmt.Sprintf("digit=%c smiles=%s", digit, smiles))
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom tokenisation
// ─────────────────────────────────────────────────────────────────────────────

// atom is a single tokenised atom from a SMILES string.
type atom struct {
	Symbol   string
	Aromatic bool
}

// organicSubset lists two-letter element symbols recognised outside brackets.
var twoLetterSymbols = map[string]bool{"Cl": true, "Br": true, "Si": true, "Se": true}

// parseAtoms tokenises a SMILES string into its atom sequence.  Bond symbols,
// branches, and ring-closure digits are skipped; bracket atoms contribute the
// leading element symbol.  This is a simplified tokeniser, not a full parser.
func parseAtoms(smiles string) []atom {
	var atoms []atom
	runes := []rune(smiles)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch {
		case ch == '[':
			// Bracket atom: scan to closing bracket, extract element symbol.
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			inner := string(runes[i+1 : min(j, len(runes))])
			if sym, aromatic, ok := bracketSymbol(inner); ok {
				atoms = append(atoms, atom{Symbol: sym, Aromatic: aromatic})
			}
			i = j + 1
		case ch >= 'A' && ch <= 'Z':
			// Possible two-letter symbol.
			if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				two := string(runes[i : i+2])
				if twoLetterSymbols[two] {
					atoms = append(atoms, atom{Symbol: two})
					i += 2
					continue
				}
			}
			atoms = append(atoms, atom{Symbol: string(ch)})
			i++
		case ch >= 'a' && ch <= 'z':
			// Aromatic atom written lowercase.
			atoms = append(atoms, atom{Symbol: strings.ToUpper(string(ch)), Aromatic: true})
			i++
		default:
			// Bond symbols, branches, ring closures, stereo markers.
			i++
		}
	}
	return atoms
}

// bracketSymbol extracts the element symbol from the inside of a bracket atom,
// e.g. "nH" → ("N", aromatic), "13C@@H" → ("C", plain).
func bracketSymbol(inner string) (string, bool, bool) {
	// Skip leading isotope digits.
	k := 0
	for k < len(inner) && inner[k] >= '0' && inner[k] <= '9' {
		k++
	}
	if k >= len(inner) {
		return "", false, false
	}
	ch := inner[k]
	switch {
	case ch >= 'A' && ch <= 'Z':
		if k+1 < len(inner) && inner[k+1] >= 'a' && inner[k+1] <= 'z' {
			two := inner[k : k+2]
			if twoLetterSymbols[two] {
				return two, false, true
			}
		}
		return string(ch), false, true
	case ch >= 'a' && ch <= 'z':
		return strings.ToUpper(string(ch)), true, true
	}
	return "", false, false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ─────────────────────────────────────────────────────────────────────────────
// Property Calculation
// ─────────────────────────────────────────────────────────────────────────────

// atomicMass holds average atomic masses for elements common in drug-like
// molecules.  Unknown elements contribute the carbon mass as a fallback.
var atomicMass = map[string]float64{
	"H": 1.008, "B": 10.81, "C": 12.011, "N": 14.007, "O": 15.999,
	"F": 18.998, "Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45,
	"Se": 78.971, "Br": 79.904, "I": 126.904,
}

// CalculateProperties computes basic physicochemical descriptors for the
// molecule from its atom sequence.  This is a deterministic, heuristic
// implementation; a production deployment would delegate to a cheminformatics
// toolkit via the external evaluator contract.
func (m *Molecule) CalculateProperties() error {
	atoms := parseAtoms(m.CanonicalSMILES)
	if len(atoms) == 0 {
		return errors.New(errors.CodeMoleculeInvalidSMILES, "no atoms found in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", m.CanonicalSMILES))
	}

	var mw float64
	var aromaticCount, nCount, oCount int
	for _, a := range atoms {
		mass, ok := atomicMass[a.Symbol]
		if !ok {
			mass = atomicMass["C"]
		}
		mw += mass
		if a.Aromatic {
			aromaticCount++
		}
		switch a.Symbol {
		case "N":
			nCount++
		case "O":
			oCount++
		}
	}

	smiles := m.CanonicalSMILES

	// H-bond donors: N-H and O-H groups.  Approximated by bracket atoms that
	// spell out an H plus bare hydroxyl oxygens at chain ends.
	hDonors := strings.Count(smiles, "[nH]") + strings.Count(smiles, "[NH") +
		strings.Count(smiles, "[OH") + strings.Count(smiles, "O)") // hydroxyl branch
	if strings.HasSuffix(smiles, "O") {
		hDonors++
	}

	// H-bond acceptors: every N and O counts in this simplified model.
	hAcceptors := nCount + oCount

	// Rotatable bonds: explicit single bonds written outside brackets.
	rotatable := 0
	inBracket := false
	for _, ch := range smiles {
		switch ch {
		case '[':
			inBracket = true
		case ']':
			inBracket = false
		case '-':
			if !inBracket {
				rotatable++
			}
		}
	}

	// Aromatic rings: six aromatic atoms per ring, rough estimate.
	aromaticRings := aromaticCount / 6

	// LogP heuristic: rings raise lipophilicity, heteroatoms lower it.
	logP := float64(aromaticRings)*0.9 - float64(nCount+oCount)*0.3 + mw/100.0

	// TPSA heuristic: each polar heteroatom contributes ~20 Å².
	tpsa := float64(nCount+oCount) * 20.0

	m.Properties = MolecularProperties{
		MolecularWeight: mw,
		LogP:            logP,
		TPSA:            tpsa,
		HBondDonors:     hDonors,
		HBondAcceptors:  hAcceptors,
		RotatableBonds:  rotatable,
		AromaticRings:   aromaticRings,
	}

	return nil
}

// HeavyAtomCount returns the number of non-hydrogen atoms in the molecule.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for _, a := range parseAtoms(m.CanonicalSMILES) {
		if a.Symbol != "H" {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Substructure Matching
// ─────────────────────────────────────────────────────────────────────────────

// ContainsSubstructure reports whether the molecule's SMILES contains the
// given pattern as a substring.  This is a simplified stand-in for SMARTS
// subgraph matching; patterns should be written as SMILES fragments.
func (m *Molecule) ContainsSubstructure(pattern string) (bool, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false, errors.New(errors.ErrCodeSubstructurePatternInvalid, "substructure pattern cannot be empty")
	}
	return strings.Contains(m.CanonicalSMILES, pattern), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Calculation
// ─────────────────────────────────────────────────────────────────────────────

// CalculateFingerprint computes and stores the specified fingerprint type for
// this molecule.  The computed fingerprint is stored in the Fingerprints map
// and can be retrieved later for similarity comparisons.
func (m *Molecule) CalculateFingerprint(fpType mtypes.FingerprintType) error {
	var fp *Fingerprint
	var err error

	switch fpType {
	case mtypes.FPMorgan:
		fp, err = CalculateMorganFingerprint(m.CanonicalSMILES, 2, 2048)
	case mtypes.FPMACCS:
		fp, err = CalculateMACCSFingerprint(m.CanonicalSMILES)
	case mtypes.FPTopological:
		fp, err = CalculateTopologicalFingerprint(m.CanonicalSMILES, 1, 7, 2048)
	default:
		return errors.New(errors.ErrCodeFingerprintTypeUnsupported, "unknown fingerprint type").
			WithDetail(fmt.Sprintf("type=%s", fpType))
	}

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "fingerprint calculation failed")
	}

	m.Fingerprints[fpType] = fp

	m.events = append(m.events, FingerprintCalculatedEvent{
		MoleculeID:      m.ID,
		FingerprintType: fpType,
	})

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity Computation
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityTo computes the Tanimoto similarity between this molecule and
// another molecule using the specified fingerprint type.  Fingerprints are
// computed on demand when missing.
//
// Returns a value in [0.0, 1.0] where 1.0 indicates identical fingerprints.
func (m *Molecule) SimilarityTo(other *Molecule, fpType mtypes.FingerprintType) (float64, error) {
	fp1, ok := m.Fingerprints[fpType]
	if !ok {
		if err := m.CalculateFingerprint(fpType); err != nil {
			return 0, err
		}
		fp1 = m.Fingerprints[fpType]
	}

	fp2, ok := other.Fingerprints[fpType]
	if !ok {
		if err := other.CalculateFingerprint(fpType); err != nil {
			return 0, err
		}
		fp2 = other.Fingerprints[fpType]
	}

	return TanimotoSimilarity(fp1, fp2)
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ToDTO converts the domain entity to a data transfer object suitable for
// cross-layer communication.
func (m *Molecule) ToDTO() mtypes.MoleculeDTO {
	dto := mtypes.MoleculeDTO{
		BaseEntity: m.BaseEntity,
		SMILES:     m.SMILES,
		Name:       m.Name,
		Properties: mtypes.MolecularProperties{
			MolecularWeight: m.Properties.MolecularWeight,
			LogP:            m.Properties.LogP,
			TPSA:            m.Properties.TPSA,
			HBondDonors:     m.Properties.HBondDonors,
			HBondAcceptors:  m.Properties.HBondAcceptors,
			RotatableBonds:  m.Properties.RotatableBonds,
			AromaticRings:   m.Properties.AromaticRings,
		},
	}

	if len(m.Fingerprints) > 0 {
		dto.Fingerprints = make(map[mtypes.FingerprintType][]byte)
		for fpType, fp := range m.Fingerprints {
			dto.Fingerprints[fpType] = fp.ToBytes()
		}
	}

	return dto
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain Event Management
// ─────────────────────────────────────────────────────────────────────────────

// Events returns all unpublished domain events and clears the internal event list.
func (m *Molecule) Events() []DomainEvent {
	events := m.events
	m.events = nil
	return events
}

//Personal.AI order the ending
