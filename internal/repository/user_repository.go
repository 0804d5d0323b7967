package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dlool-api/internal/models"
)

const userColumns = `id, username, display_name, password_hash, school_id, class_ids, email, created_at, updated_at`

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ExistsByUsername reports whether a committed user owns username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Create inserts a user. ErrDuplicateKey is returned when the username is
// already taken by a user or by a pending signup request.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	prepareUser(user)
	return withTx(ctx, r.db, "create user", func(tx *sqlx.Tx) error {
		if err := lockUsername(ctx, tx, user.Username); err != nil {
			return err
		}
		var pending bool
		if err := tx.GetContext(ctx, &pending, `SELECT EXISTS(SELECT 1 FROM signup_requests WHERE username = $1 AND status = 'pending')`, user.Username); err != nil {
			return fmt.Errorf("check pending requests: %w", err)
		}
		if pending {
			return ErrDuplicateKey
		}
		return insertUser(ctx, tx, user)
	})
}

// UpdateFields applies a partial update. A username already held by another
// user or by a pending signup request yields ErrDuplicateKey.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, update models.UserUpdate) error {
	if update.Empty() {
		return nil
	}
	setParts := []string{"updated_at = :updated_at"}
	args := map[string]interface{}{"id": id, "updated_at": time.Now().UTC()}
	if update.Username != nil {
		setParts = append(setParts, "username = :username")
		args["username"] = *update.Username
	}
	if update.DisplayName != nil {
		setParts = append(setParts, "display_name = :display_name")
		args["display_name"] = *update.DisplayName
	}
	if update.Email != nil {
		setParts = append(setParts, "email = :email")
		args["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		setParts = append(setParts, "password_hash = :password_hash")
		args["password_hash"] = *update.PasswordHash
	}
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = :id", strings.Join(setParts, ", "))

	if update.Username == nil {
		return updateUser(ctx, r.db, query, args)
	}
	return withTx(ctx, r.db, "update user", func(tx *sqlx.Tx) error {
		if err := lockUsername(ctx, tx, *update.Username); err != nil {
			return err
		}
		var pending bool
		if err := tx.GetContext(ctx, &pending, `SELECT EXISTS(SELECT 1 FROM signup_requests WHERE username = $1 AND status = 'pending')`, *update.Username); err != nil {
			return fmt.Errorf("check pending requests: %w", err)
		}
		if pending {
			return ErrDuplicateKey
		}
		return updateUser(ctx, tx, query, args)
	})
}

func updateUser(ctx context.Context, ext sqlx.ExtContext, query string, args map[string]interface{}) error {
	result, err := sqlx.NamedExecContext(ctx, ext, query, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check user update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a user. Class memberships are left untouched.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check user delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareUser(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
}

func insertUser(ctx context.Context, ext sqlx.ExtContext, user *models.User) error {
	prepareUser(user)
	const query = `INSERT INTO users (` + userColumns + `)
	VALUES (:id, :username, :display_name, :password_hash, :school_id, :class_ids, :email, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
