// Package molecule provides the domain service layer for molecular operations.
package molecule

import (
	"context"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	mtypes "github.com/turtacn/MolScore/pkg/types/molecule"
)

// Service coordinates molecule parsing and caching.  It enforces domain rules
// and provides the high-level parsing API that the scoring application uses.
type Service struct {
	repo   Repository
	logger logging.Logger
}

// NewService constructs a new molecule domain service.  The repository may be
// nil, in which case every parse is computed fresh.
func NewService(repo Repository, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Parsing Operations
// ─────────────────────────────────────────────────────────────────────────────

// Parse converts a SMILES string into a Molecule, consulting the cache first.
// Parsed molecules are cached on the way out; cache failures are non-fatal.
func (s *Service) Parse(ctx context.Context, smiles string) (*Molecule, error) {
	if s.repo != nil {
		existing, err := s.repo.FindBySMILES(ctx, smiles)
		if err == nil {
			return existing, nil
		}
		if !errors.IsNotFound(err) {
			s.logger.Warn("molecule cache lookup failed", logging.String("smiles", smiles), logging.Err(err))
		}
	}

	mol, err := NewMolecule(smiles)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, mol); err != nil {
			s.logger.Warn("molecule cache save failed", logging.String("smiles", smiles), logging.Err(err))
		}
	}

	return mol, nil
}

// ParseBatch parses a batch of SMILES strings, preserving input order.  The
// result slice has one entry per input: invalid entries carry a nil Molecule
// and the parse error, so callers can score a batch without aborting on bad
// structures.
func (s *Service) ParseBatch(ctx context.Context, smilesList []string) ([]ParseResult, error) {
	if len(smilesList) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeEmptyBatch, "no SMILES strings provided")
	}

	results := make([]ParseResult, len(smilesList))
	invalid := 0
	for i, smiles := range smilesList {
		mol, err := s.Parse(ctx, smiles)
		if err != nil {
			s.logger.Warn("skipping invalid SMILES",
				logging.Int("index", i),
				logging.String("smiles", smiles),
				logging.Err(err))
			invalid++
		}
		results[i] = ParseResult{SMILES: smiles, Molecule: mol, Err: err}
	}

	s.logger.Debug("batch parse completed",
		logging.Int("total", len(smilesList)),
		logging.Int("invalid", invalid))

	return results, nil
}

// ParseResult pairs an input SMILES with its parse outcome.
type ParseResult struct {
	SMILES   string
	Molecule *Molecule
	Err      error
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference Sets
// ─────────────────────────────────────────────────────────────────────────────

// ReferenceSet is a parsed collection of known-good molecules with their
// fingerprints precomputed, used for similarity comparisons against generated
// structures.
type ReferenceSet struct {
	Molecules       []*Molecule
	FingerprintType mtypes.FingerprintType
}

// LoadReferenceSet parses reference SMILES strings and precomputes the given
// fingerprint type for each.  Invalid entries are skipped with a warning; an
// error is returned only when no valid molecule remains.
func (s *Service) LoadReferenceSet(ctx context.Context, smilesList []string, fpType mtypes.FingerprintType) (*ReferenceSet, error) {
	if len(smilesList) == 0 {
		return nil, errors.New(errors.ErrCodeReferenceSetEmpty, "reference set cannot be empty")
	}

	mols := make([]*Molecule, 0, len(smilesList))
	for i, smiles := range smilesList {
		mol, err := s.Parse(ctx, smiles)
		if err != nil {
			s.logger.Warn("skipping invalid reference SMILES",
				logging.Int("index", i),
				logging.String("smiles", smiles),
				logging.Err(err))
			continue
		}
		if err := mol.CalculateFingerprint(fpType); err != nil {
			s.logger.Warn("skipping reference molecule without fingerprint",
				logging.Int("index", i),
				logging.String("smiles", smiles),
				logging.Err(err))
			continue
		}
		mols = append(mols, mol)
	}

	if len(mols) == 0 {
		return nil, errors.New(errors.ErrCodeReferenceSetEmpty, "no valid molecules in reference set")
	}

	s.logger.Info("reference set loaded",
		logging.Int("total", len(smilesList)),
		logging.Int("valid", len(mols)),
		logging.String("fingerprint", string(fpType)))

	return &ReferenceSet{Molecules: mols, FingerprintType: fpType}, nil
}

// MaxSimilarity returns the highest similarity between the query molecule and
// any molecule in the reference set, using the given metric.
func (rs *ReferenceSet) MaxSimilarity(query *Molecule, metric SimilarityMetric) (float64, error) {
	calc, err := NewSimilarityCalculator(metric)
	if err != nil {
		return 0, err
	}

	if err := queryFingerprint(query, rs.FingerprintType); err != nil {
		return 0, err
	}
	queryFP := query.Fingerprints[rs.FingerprintType]

	best := 0.0
	for _, ref := range rs.Molecules {
		sim, err := calc.Calculate(queryFP, ref.Fingerprints[rs.FingerprintType])
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// queryFingerprint ensures the query molecule has the required fingerprint.
func queryFingerprint(mol *Molecule, fpType mtypes.FingerprintType) error {
	if _, ok := mol.Fingerprints[fpType]; ok {
		return nil
	}
	return mol.CalculateFingerprint(fpType)
}

//Personal.AI order the ending
