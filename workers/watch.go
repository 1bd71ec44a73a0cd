package workers

import (
	"context"
	"time"

	"gobridgerelay/log"
)

// Scanner is implemented by relay.Scanner
type Scanner interface {
	Scan(ctx context.Context, role string) (int, error)
}

// both chains, one after the other, never concurrently
var watchRoles = []string{"source", "destination"}

// Worker_watch rescans both chains every interval until ctx is cancelled.
// A failed scan is logged and the loop goes on with the next one.
func Worker_watch(ctx context.Context, scanner Scanner, interval time.Duration) {
	logger := log.GetLogger()
	for {
		for _, role := range watchRoles {
			if ctx.Err() != nil {
				return
			}
			n, err := scanner.Scan(ctx, role)
			if err != nil {
				logger.ErrorWithStack("scan failed", err, "role", role, "relayed", n)
				continue
			}
			logger.Debug("scan done", "role", role, "relayed", n)
		}

		select {
		case <-ctx.Done():
			logger.Info("watch worker stopped")
			return
		case <-time.After(interval):
		}
	}
}
