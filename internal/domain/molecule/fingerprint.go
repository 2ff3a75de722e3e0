package molecule

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/turtacn/MolScore/pkg/errors"
	mtypes "github.com/turtacn/MolScore/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Value Object
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is an immutable bit-vector representation of molecular structure
// used for fast similarity comparisons.
type Fingerprint struct {
	// Type identifies the fingerprint algorithm.
	Type mtypes.FingerprintType

	// Bits is the packed bit vector (8 bits per byte, LSB first within a byte).
	Bits []byte

	// Length is the number of bits in the vector.
	Length int

	// NumOnBits is the count of set bits, cached for similarity calculations.
	NumOnBits int
}

// NewFingerprint constructs a Fingerprint from a packed bit vector, computing
// the on-bit count.
func NewFingerprint(fpType mtypes.FingerprintType, bitVector []byte, length int) (*Fingerprint, error) {
	if length <= 0 || len(bitVector)*8 < length {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "bit vector shorter than declared length").
			WithDetail(fmt.Sprintf("bytes=%d length=%d", len(bitVector), length))
	}

	onBits := 0
	for _, b := range bitVector {
		onBits += bits.OnesCount8(b)
	}

	return &Fingerprint{
		Type:      fpType,
		Bits:      bitVector,
		Length:    length,
		NumOnBits: onBits,
	}, nil
}

// GetBit returns whether the bit at the given position is set.
func (fp *Fingerprint) GetBit(pos int) bool {
	if pos < 0 || pos >= fp.Length {
		return false
	}
	return fp.Bits[pos/8]&(1<<(pos%8)) != 0
}

// setBit sets the bit at the given position, keeping NumOnBits consistent.
func (fp *Fingerprint) setBit(pos int) {
	if pos < 0 || pos >= fp.Length {
		return
	}
	idx, mask := pos/8, byte(1)<<(pos%8)
	if fp.Bits[idx]&mask == 0 {
		fp.Bits[idx] |= mask
		fp.NumOnBits++
	}
}

// ToBytes serialises the fingerprint bit vector for storage or transport.
func (fp *Fingerprint) ToBytes() []byte {
	out := make([]byte, len(fp.Bits))
	copy(out, fp.Bits)
	return out
}

// FingerprintFromBytes reconstructs a Fingerprint from a serialised bit vector.
func FingerprintFromBytes(fpType mtypes.FingerprintType, data []byte, length int) (*Fingerprint, error) {
	bitVector := make([]byte, len(data))
	copy(bitVector, data)
	return NewFingerprint(fpType, bitVector, length)
}

// emptyFingerprint allocates a zeroed fingerprint of the given length.
func emptyFingerprint(fpType mtypes.FingerprintType, length int) *Fingerprint {
	return &Fingerprint{
		Type:   fpType,
		Bits:   make([]byte, (length+7)/8),
		Length: length,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (Circular) Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateMorganFingerprint computes a hashed circular fingerprint.  For each
// atom, the local environment out to the given radius is hashed into the bit
// vector.  Standard parameters are radius=2 and nBits=2048 (ECFP4-like).
func CalculateMorganFingerprint(smiles string, radius, nBits int) (*Fingerprint, error) {
	atoms := parseAtoms(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "no atoms to fingerprint").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	fp := emptyFingerprint(mtypes.FPMorgan, nBits)

	for i := range atoms {
		for r := 0; r <= radius; r++ {
			env := atomEnvironment(atoms, i, r)
			fp.setBit(hashToBit(env, nBits))
		}
	}

	return fp, nil
}

// atomEnvironment describes the neighbourhood of an atom at a given radius as
// a string over the linear atom sequence.  True circular environments require
// the molecular graph; the sequence window approximates it.
func atomEnvironment(atoms []atom, center, radius int) string {
	lo := center - radius
	if lo < 0 {
		lo = 0
	}
	hi := center + radius
	if hi >= len(atoms) {
		hi = len(atoms) - 1
	}

	env := fmt.Sprintf("r%d:", radius)
	for i := lo; i <= hi; i++ {
		sym := atoms[i].Symbol
		if atoms[i].Aromatic {
			sym = sym + "~"
		}
		env += sym
	}
	return env
}

// hashToBit maps an environment string to a bit position via SHA-256.
func hashToBit(env string, nBits int) int {
	sum := sha256.Sum256([]byte(env))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(nBits))
}

// ─────────────────────────────────────────────────────────────────────────────
// MACCS Keys Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// maccsPatterns maps bit positions to SMILES fragments for a reduced MACCS-like
// key set.  The full MACCS definition has 166 structural keys; this subset
// covers the features relevant to drug-like generative scoring.
var maccsPatterns = map[int]string{
	10: "N", 20: "O", 30: "S", 40: "F", 50: "Cl",
	60: "Br", 70: "I", 80: "P", 90: "c1ccccc1",
	100: "C=O", 110: "C#N", 120: "OC", 130: "NC",
	140: "C=C", 150: "[nH]", 160: "O=C",
}

// CalculateMACCSFingerprint computes a 166-bit MACCS-like structural key
// fingerprint from SMILES fragment presence.
func CalculateMACCSFingerprint(smiles string) (*Fingerprint, error) {
	if len(parseAtoms(smiles)) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "no atoms to fingerprint").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	const maccsBits = 166
	fp := emptyFingerprint(mtypes.FPMACCS, maccsBits)

	for pos, pattern := range maccsPatterns {
		if containsFragment(smiles, pattern) {
			fp.setBit(pos)
		}
	}

	return fp, nil
}

// containsFragment reports whether the SMILES string contains the fragment.
func containsFragment(smiles, fragment string) bool {
	for i := 0; i+len(fragment) <= len(smiles); i++ {
		if smiles[i:i+len(fragment)] == fragment {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Topological (Path-Based) Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateTopologicalFingerprint computes a Daylight-style path fingerprint.
// Linear atom paths from minPath to maxPath atoms are hashed into the bit
// vector.  Standard parameters are minPath=1, maxPath=7, nBits=2048.
func CalculateTopologicalFingerprint(smiles string, minPath, maxPath, nBits int) (*Fingerprint, error) {
	atoms := parseAtoms(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "no atoms to fingerprint").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	fp := emptyFingerprint(mtypes.FPTopological, nBits)

	for start := range atoms {
		for length := minPath; length <= maxPath; length++ {
			end := start + length
			if end > len(atoms) {
				break
			}
			path := "p:"
			for i := start; i < end; i++ {
				path += atoms[i].Symbol
			}
			fp.setBit(hashToBit(path, nBits))
		}
	}

	return fp, nil
}

//Personal.AI order the ending
