package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, email, phone, name, password_hash, salt, algorithm,
			provider, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.Phone,
			user.Name,
			user.PasswordHash,
			user.Salt,
			user.Algorithm,
			user.Provider,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for i := range user.Validations {
			if err := insertValidation(ctx, tx, user.ID, &user.Validations[i]); err != nil {
				return err
			}
		}

		for _, role := range user.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)`,
				user.ID, role,
			); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertValidation(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, v *model.ValidationAttempt) error {
	query := `
		INSERT INTO user_validations (
			user_id, type, validated, code, resend_count, try_count,
			created_at, last_try_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		userID, v.Type, v.Validated, v.Code, v.ResendCount, v.TryCount,
		v.CreatedAt, v.LastTryAt,
	)
	return err
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT * FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadAssociations(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT * FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := r.loadAssociations(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) loadAssociations(ctx context.Context, user *model.User) error {
	var validations []model.ValidationAttempt
	if err := r.db.SelectContext(ctx, &validations,
		`SELECT type, validated, code, resend_count, try_count, created_at, last_try_at
		 FROM user_validations WHERE user_id = $1 ORDER BY created_at`,
		user.ID,
	); err != nil {
		return fmt.Errorf("failed to load validations: %w", err)
	}
	user.Validations = validations

	var roles []string
	if err := r.db.SelectContext(ctx, &roles,
		`SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name`,
		user.ID,
	); err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	user.Roles = roles

	return nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			email = $1,
			phone = $2,
			name = $3,
			password_hash = $4,
			salt = $5,
			algorithm = $6,
			provider = $7,
			updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`

	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Phone,
		user.Name,
		user.PasswordHash,
		user.Salt,
		user.Algorithm,
		user.Provider,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

func (r *userRepository) UpdateValidation(ctx context.Context, userID uuid.UUID, attempt *model.ValidationAttempt) error {
	query := `
		UPDATE user_validations SET
			validated = $1,
			code = $2,
			resend_count = $3,
			try_count = $4,
			last_try_at = $5
		WHERE user_id = $6 AND type = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		attempt.Validated,
		attempt.Code,
		attempt.ResendCount,
		attempt.TryCount,
		attempt.LastTryAt,
		userID,
		attempt.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to update validation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("validation %s not found for user", attempt.Type)
	}

	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

func (r *userRepository) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	query := `
		SELECT * FROM users
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filter != nil {
		if filter.Provider != "" {
			args = append(args, filter.Provider)
			query += fmt.Sprintf(` AND provider = $%d`, len(args))
		}
		if filter.SearchTerm != "" {
			args = append(args, "%"+filter.SearchTerm+"%")
			query += fmt.Sprintf(` AND (email ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
		}
	}

	query += ` ORDER BY created_at DESC`

	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(` OFFSET $%d`, len(args))
		}
	}

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *userRepository) DeleteExpired(ctx context.Context, rule *model.ExpiryRule, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM users
		WHERE created_at < $1
		AND id IN (
			SELECT user_id FROM user_validations
			WHERE type = $2 AND validated = false
		)
	`

	result, err := r.db.ExecContext(ctx, query, cutoff, rule.ContactType)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired users: %w", err)
	}

	return result.RowsAffected()
}
