package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/identity-api/internal/repository"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/metrics"
)

// ExpirySweepWorker executes the store-level TTL rules: on every tick it
// deletes users whose matching contact attempt is still unvalidated past
// the rule's TTL. The rules themselves are owned by the expiry engine.
type ExpirySweepWorker struct {
	users         repository.UserRepository
	rules         repository.ExpiryRuleRepository
	sweepInterval time.Duration
	log           *logger.Logger
	metrics       *metrics.Metrics
}

func NewExpirySweepWorker(users repository.UserRepository, rules repository.ExpiryRuleRepository, sweepInterval time.Duration, log *logger.Logger, m *metrics.Metrics) *ExpirySweepWorker {
	return &ExpirySweepWorker{
		users:         users,
		rules:         rules,
		sweepInterval: sweepInterval,
		log:           log,
		metrics:       m,
	}
}

func (w *ExpirySweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.log.Error(err, "expiry sweep failed")
			}
		}
	}
}

func (w *ExpirySweepWorker) sweep(ctx context.Context) error {
	rules, err := w.rules.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expiry rules: %w", err)
	}

	for _, rule := range rules {
		cutoff := time.Now().Add(-rule.TTL())

		deleted, err := w.users.DeleteExpired(ctx, rule, cutoff)
		if err != nil {
			return fmt.Errorf("failed to sweep rule %s: %w", rule.ContactType, err)
		}

		if deleted > 0 {
			if w.metrics != nil {
				w.metrics.ExpiredDeleted.Add(float64(deleted))
			}
			w.log.Info("removed unvalidated users", "contact_type", rule.ContactType, "count", deleted, "cutoff", cutoff)
		}
	}

	return nil
}
