package role

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/identity-api/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Validator answers role-existence lookups with a short-lived in-process
// cache in front of the repository.
type Validator struct {
	repo  repository.RoleRepository
	cache *cache.Cache
}

func NewValidator(repo repository.RoleRepository) *Validator {
	return &Validator{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// RoleExists reports whether the named role is defined. Only positive
// results are cached; an unknown role may be created at any moment.
func (v *Validator) RoleExists(ctx context.Context, name string) (bool, error) {
	if _, found := v.cache.Get(name); found {
		return true, nil
	}

	exists, err := v.repo.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to validate role %q: %w", name, err)
	}
	if exists {
		v.cache.Set(name, struct{}{}, cache.DefaultExpiration)
	}
	return exists, nil
}
