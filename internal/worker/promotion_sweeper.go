// Package worker contains background tasks that run independently of
// the request path.
package worker

import (
	"context"
	"log"
	"time"
)

// PromotionExpirer is the slice of the promotion repository the
// sweeper needs.
type PromotionExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// StartPromotionSweeper periodically flips promotions whose end date
// has passed from ACTIVE to EXPIRED. The underlying statement only
// moves status forward and never touches quantity, so the sweep is
// idempotent and safe to run concurrently with confirm and validate
// traffic. The loop exits when ctx is cancelled.
func StartPromotionSweeper(ctx context.Context, promos PromotionExpirer, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := promos.ExpireOverdue(ctx)
			if err != nil {
				log.Printf("promotion-sweeper: expire pass failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("promotion-sweeper: expired %d promotions", n)
			}
		}
	}
}
