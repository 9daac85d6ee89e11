package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/identity-api/internal/repository"
)

type roleRepository struct {
	BaseRepository
}

func NewRoleRepository(base BaseRepository) repository.RoleRepository {
	return &roleRepository{base}
}

func (r *roleRepository) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1)`, name,
	); err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}
