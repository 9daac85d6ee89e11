package model

import (
	"time"

	"github.com/google/uuid"
)

// ExpiryRule is a store-level TTL rule: delete records whose contact
// attempt of the given type is still unvalidated once created_at is more
// than TTLSeconds in the past. The rule is configuration the reconciler
// maintains; the store's own sweep executes it.
type ExpiryRule struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ContactType string    `json:"contact_type" db:"contact_type"`
	TTLSeconds  int64     `json:"ttl_seconds" db:"ttl_seconds"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TTL returns the rule's lifetime as a duration.
func (r *ExpiryRule) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}
