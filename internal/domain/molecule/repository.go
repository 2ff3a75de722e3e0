// Package molecule defines the repository interface for parsed molecule caching.
package molecule

import (
	"context"
)

// Repository defines the caching contract for parsed Molecule aggregates.
// Scoring is stateless over generator batches, so the repository is a cache
// keyed by SMILES rather than a system of record.  Implementations must be
// safe for concurrent use.
type Repository interface {
	// FindBySMILES retrieves a previously parsed molecule by its SMILES string.
	// Returns errors.CodeNotFound if no matching molecule is cached.
	FindBySMILES(ctx context.Context, smiles string) (*Molecule, error)

	// Save caches a parsed molecule, overwriting any existing entry for the
	// same SMILES.
	Save(ctx context.Context, mol *Molecule) error

	// Count returns the number of cached molecules.
	Count(ctx context.Context) (int64, error)
}

//Personal.AI order the ending
