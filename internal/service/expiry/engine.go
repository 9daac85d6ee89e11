package expiry

import (
	"context"
	"fmt"

	"github.com/jwalitptl/identity-api/config"
	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/repository"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/metrics"
)

// Engine reconciles the store-level TTL rule for unvalidated email
// accounts. It only ever creates or drops the rule itself; deleting the
// records is the store sweep's job.
type Engine struct {
	rules   repository.ExpiryRuleRepository
	cfg     config.ValidationConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewEngine(rules repository.ExpiryRuleRepository, cfg config.ValidationConfig, log *logger.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		rules:   rules,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

// Reconcile converges the stored rules to the configuration. It is
// idempotent and safe to run from several instances at once: rule creation
// is a conflict-tolerant insert and dropping an already dropped rule is a
// no-op, so a race leaves exactly one matching rule.
func (e *Engine) Reconcile(ctx context.Context) error {
	if e.metrics != nil {
		e.metrics.ReconcileRuns.Inc()
	}

	existing, err := e.rules.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expiry rules: %w", err)
	}

	if !e.cfg.EmailEnabled || e.cfg.EmailTTLSeconds <= 0 {
		return e.dropAll(ctx, existing, model.ContactEmail)
	}

	found := false
	for _, rule := range existing {
		if rule.ContactType != model.ContactEmail {
			continue
		}
		if rule.TTLSeconds == e.cfg.EmailTTLSeconds {
			found = true
			continue
		}

		// Same filter, different TTL: the configuration changed since the
		// rule was written.
		if err := e.rules.Delete(ctx, rule.ID); err != nil {
			return fmt.Errorf("failed to drop stale expiry rule: %w", err)
		}
		if e.metrics != nil {
			e.metrics.RulesReplaced.Inc()
		}
		e.log.Info("dropped stale expiry rule", "contact_type", rule.ContactType, "ttl_seconds", rule.TTLSeconds)
	}

	if found {
		return nil
	}

	rule := &model.ExpiryRule{
		ContactType: model.ContactEmail,
		TTLSeconds:  e.cfg.EmailTTLSeconds,
	}
	if err := e.rules.Create(ctx, rule); err != nil {
		return fmt.Errorf("failed to create expiry rule: %w", err)
	}

	e.log.Info("ensured expiry rule", "contact_type", rule.ContactType, "ttl_seconds", rule.TTLSeconds)
	return nil
}

func (e *Engine) dropAll(ctx context.Context, rules []*model.ExpiryRule, contactType string) error {
	for _, rule := range rules {
		if rule.ContactType != contactType {
			continue
		}
		if err := e.rules.Delete(ctx, rule.ID); err != nil {
			return fmt.Errorf("failed to drop expiry rule: %w", err)
		}
		e.log.Info("dropped expiry rule, validation disabled", "contact_type", contactType)
	}
	return nil
}
