// Package fanout runs a batch of independent operations concurrently and
// collects failures without cancelling siblings. One item failing must
// never abort the rest, so this deliberately avoids errgroup semantics.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Run invokes fn for each of n items concurrently and waits for all of them.
// Every failure is logged with the item's name; the return value is the
// number of items that failed. A panicking item is recovered and counted as
// a failure so it cannot take its siblings or the process down with it.
func Run(ctx context.Context, logger *zap.Logger, op string, n int, name func(int) string, fn func(ctx context.Context, i int) error) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	fail := func(i int, err error) {
		logger.Error("fan-out item failed",
			zap.String("op", op),
			zap.String("item", name(i)),
			zap.Error(err),
		)
		mu.Lock()
		failed++
		mu.Unlock()
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(i, fmt.Errorf("panic: %v", r))
				}
			}()
			if err := fn(ctx, i); err != nil {
				fail(i, err)
			}
		}(i)
	}
	wg.Wait()
	return failed
}
