// Package canon implements confirmation-depth canonical block
// advancement: deciding when a stored block is deep enough under the
// current tip to become the bridge's canonical reference point, and
// moving that reference forward safely.
package canon

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// NthAncestor follows parent links exactly n times from the block named
// by startHash. n = 0 returns the start block itself.
//
// A missing block anywhere on the path aborts the whole walk with
// store.ErrNotFound; the walk never substitutes a nearer ancestor. Any
// other store error is propagated as-is.
func NthAncestor(ctx context.Context, cs store.ChainStore, chain model.Chain, startHash string, n uint64) (*model.BlockRecord, error) {
	block, err := cs.GetBlock(ctx, chain, startHash)
	if err != nil {
		return nil, fmt.Errorf("walk start %s: %w", startHash, err)
	}

	for step := uint64(0); step < n; step++ {
		parent, err := cs.GetBlock(ctx, chain, block.ParentHash)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("ancestor %d of %s (parent %s absent): %w", n, startHash, block.ParentHash, store.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("walk step %d from %s: %w", step, startHash, err)
		}
		block = parent
	}
	return block, nil
}
