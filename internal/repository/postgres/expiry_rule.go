package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/repository"
)

type expiryRuleRepository struct {
	BaseRepository
}

func NewExpiryRuleRepository(base BaseRepository) repository.ExpiryRuleRepository {
	return &expiryRuleRepository{base}
}

func (r *expiryRuleRepository) List(ctx context.Context) ([]*model.ExpiryRule, error) {
	var rules []*model.ExpiryRule
	if err := r.db.SelectContext(ctx, &rules,
		`SELECT * FROM expiry_rules ORDER BY created_at`,
	); err != nil {
		return nil, fmt.Errorf("failed to list expiry rules: %w", err)
	}
	return rules, nil
}

// Create is idempotent on (contact_type, ttl_seconds): concurrent startups
// racing on the same rule leave exactly one row behind.
func (r *expiryRuleRepository) Create(ctx context.Context, rule *model.ExpiryRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = time.Now()

	query := `
		INSERT INTO expiry_rules (id, contact_type, ttl_seconds, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contact_type, ttl_seconds) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.ContactType, rule.TTLSeconds, rule.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create expiry rule: %w", err)
	}
	return nil
}

// Delete removes the rule by id; deleting an already removed rule is a
// no-op so concurrent reconciliations cannot fail each other.
func (r *expiryRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM expiry_rules WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete expiry rule: %w", err)
	}
	return nil
}
