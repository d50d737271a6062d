// Package category resolves category names to identifiers inside a load
// transaction, creating them on first sight.
package category

import (
	"context"
	"fmt"

	"github.com/compozy/tdlimport/engine/infra/store"
)

// Resolution is the outcome of one resolve call.
type Resolution struct {
	ID      int64
	Created bool
}

// Resolve maps name to its identifier with insert-or-ignore semantics.
// Names compare exactly; callers pass the raw source text.
func Resolve(ctx context.Context, tx store.Tx, name string) (Resolution, error) {
	id, created, err := tx.InsertCategoryIfAbsent(ctx, name)
	if err != nil {
		return Resolution{}, fmt.Errorf("category: insert %q: %w", name, err)
	}
	if created {
		return Resolution{ID: id, Created: true}, nil
	}
	id, err = tx.CategoryID(ctx, name)
	if err != nil {
		return Resolution{}, fmt.Errorf("category: lookup %q: %w", name, err)
	}
	return Resolution{ID: id}, nil
}
