package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// PositionChanges is the first difference of a signal series: entry i is
// signal i minus signal i-1. It is None when either signal is undefined and
// for the first bar. Values range over {-2, -1, 0, 1, 2}.
func PositionChanges(signals []types.Signal) []optional.Option[int] {
	changes := make([]optional.Option[int], len(signals))

	for i := range signals {
		if i == 0 || !signals[i].IsDefined() || !signals[i-1].IsDefined() {
			changes[i] = optional.None[int]()

			continue
		}

		changes[i] = optional.Some(int(signals[i].Value.Unwrap()) - int(signals[i-1].Value.Unwrap()))
	}

	return changes
}
