package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dlool-api/internal/models"
)

const schoolColumns = `id, name, description, unique_name, timezone_offset, class_ids, created_at`

// SchoolRepository persists schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByUniqueName returns the school registered under uniqueName.
func (r *SchoolRepository) FindByUniqueName(ctx context.Context, uniqueName string) (*models.School, error) {
	var school models.School
	if err := r.db.GetContext(ctx, &school, `SELECT `+schoolColumns+` FROM schools WHERE unique_name = $1`, uniqueName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school by unique name: %w", err)
	}
	return &school, nil
}

// FindByID returns a school by identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	var school models.School
	if err := r.db.GetContext(ctx, &school, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school by id: %w", err)
	}
	return &school, nil
}

// Create inserts a school; a taken unique name yields ErrDuplicateKey.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	if school.CreatedAt.IsZero() {
		school.CreatedAt = time.Now().UTC()
	}
	if school.ClassIDs == nil {
		school.ClassIDs = []string{}
	}
	const query = `INSERT INTO schools (` + schoolColumns + `)
	VALUES (:id, :name, :description, :unique_name, :timezone_offset, :class_ids, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// appendClass adds classID to the end of the school's class list.
func appendClass(ctx context.Context, ext sqlx.ExtContext, schoolID, classID string) error {
	const query = `UPDATE schools SET class_ids = array_append(class_ids, $2::text) WHERE id = $1`
	result, err := ext.ExecContext(ctx, query, schoolID, classID)
	if err != nil {
		return fmt.Errorf("append class to school: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check school update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
