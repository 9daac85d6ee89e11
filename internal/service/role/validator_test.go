package role

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRoleRepo struct {
	known map[string]bool
	calls int
}

func (r *countingRoleRepo) Exists(_ context.Context, name string) (bool, error) {
	r.calls++
	return r.known[name], nil
}

func TestRoleExists(t *testing.T) {
	repo := &countingRoleRepo{known: map[string]bool{"admin": true}}
	v := NewValidator(repo)

	ok, err := v.RoleExists(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.RoleExists(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleExistsCachesPositiveLookups(t *testing.T) {
	repo := &countingRoleRepo{known: map[string]bool{"admin": true}}
	v := NewValidator(repo)

	for i := 0; i < 5; i++ {
		ok, err := v.RoleExists(context.Background(), "admin")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestRoleExistsDoesNotCacheNegatives(t *testing.T) {
	repo := &countingRoleRepo{known: map[string]bool{}}
	v := NewValidator(repo)

	_, err := v.RoleExists(context.Background(), "pending")
	require.NoError(t, err)

	// The role appears; the next lookup must see it
	repo.known["pending"] = true
	ok, err := v.RoleExists(context.Background(), "pending")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, repo.calls)
}
