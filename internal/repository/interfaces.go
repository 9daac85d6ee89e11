package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles identity record operations
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdateValidation(ctx context.Context, userID uuid.UUID, attempt *model.ValidationAttempt) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error)
		// DeleteExpired executes one TTL rule: remove users created before
		// cutoff whose matching contact attempt is still unvalidated.
		DeleteExpired(ctx context.Context, rule *model.ExpiryRule, cutoff time.Time) (int64, error)
	}

	// ExpiryRuleRepository manages the store-level TTL rules the expiry
	// engine reconciles. Create must be idempotent under concurrent
	// startups: a second create of the same filter is a no-op.
	ExpiryRuleRepository interface {
		List(ctx context.Context) ([]*model.ExpiryRule, error)
		Create(ctx context.Context, rule *model.ExpiryRule) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// RoleRepository looks up role definitions
	RoleRepository interface {
		Exists(ctx context.Context, name string) (bool, error)
	}

	// AttemptLimiter throttles repeated operations per key within a window
	AttemptLimiter interface {
		Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	}
)
