// Package feedback holds the fire-and-forget reactions to a cast vote.
package feedback

import (
	"context"

	"github.com/maaaruch/memory-tribunal/internal/domain"
	"github.com/maaaruch/memory-tribunal/internal/votes"
)

// Multi calls every notifier in order.
type Multi []votes.Notifier

func (m Multi) Voted(ctx context.Context, o domain.Option, t domain.Tally) {
	for _, n := range m {
		if n != nil {
			n.Voted(ctx, o, t)
		}
	}
}
