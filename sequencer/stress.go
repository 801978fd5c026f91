package sequencer

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/pg-sharding/tradeseq/pkg/seqlog"
)

// StressReport summarises a Stress run.
type StressReport struct {
	Dispensed  int64
	Distinct   int64
	Duplicates []int64
}

// Stress calls NextID workers*calls times from workers goroutines and
// reports any value handed out more than once. The first failing call stops
// the run.
func Stress(ctx context.Context, am SeqAM, name string, workers, calls int) (*StressReport, error) {
	var (
		dispensed = atomic.NewInt64(0)
		mu        sync.Mutex
		seen      = make(map[int64]int, workers*calls)
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < calls; i++ {
				id, err := am.NextID(gctx, name)
				if err != nil {
					return err
				}
				dispensed.Inc()

				mu.Lock()
				seen[id]++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &StressReport{
		Dispensed: dispensed.Load(),
		Distinct:  int64(len(seen)),
	}
	for id, n := range seen {
		if n > 1 {
			report.Duplicates = append(report.Duplicates, id)
		}
	}
	sort.Slice(report.Duplicates, func(i, j int) bool {
		return report.Duplicates[i] < report.Duplicates[j]
	})

	ev := seqlog.Zero.Info()
	if len(report.Duplicates) != 0 {
		ev = seqlog.Zero.Warn()
	}
	ev.Str("sequence", name).
		Int("workers", workers).
		Int64("dispensed", report.Dispensed).
		Int64("distinct", report.Distinct).
		Int("duplicates", len(report.Duplicates)).
		Msg("stress run finished")

	return report, nil
}
