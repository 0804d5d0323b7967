package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/dlool-api/internal/models"
)

const classColumns = `id, name, school_id, member_ids, created_at`

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository instantiates the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByName resolves a class by its name within a school.
func (r *ClassRepository) FindByName(ctx context.Context, schoolID, name string) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, `SELECT `+classColumns+` FROM classes WHERE school_id = $1 AND name = $2`, schoolID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by name: %w", err)
	}
	return &class, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindByIDs returns the classes with the given ids in the order requested.
// Unknown ids are skipped.
func (r *ClassRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Class, error) {
	if len(ids) == 0 {
		return []*models.Class{}, nil
	}
	var rows []*models.Class
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+classColumns+` FROM classes WHERE id::text = ANY($1)`, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("find classes by ids: %w", err)
	}
	byID := make(map[string]*models.Class, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	ordered := make([]*models.Class, 0, len(rows))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// ListBySchool returns the classes of a school by name.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]*models.Class, error) {
	classes := []*models.Class{}
	if err := r.db.SelectContext(ctx, &classes, `SELECT `+classColumns+` FROM classes WHERE school_id = $1 ORDER BY name`, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Create inserts a class and appends it to its school's class list in one
// transaction. A duplicate (name, school) yields ErrDuplicateKey.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	if class.MemberIDs == nil {
		class.MemberIDs = []string{}
	}
	return withTx(ctx, r.db, "create class", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO classes (` + classColumns + `) VALUES (:id, :name, :school_id, :member_ids, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, class); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("create class: %w", err)
		}
		return appendClass(ctx, tx, class.SchoolID, class.ID)
	})
}

// AppendMember adds userID to the class member set. Adding an existing member
// is a no-op; sql.ErrNoRows means the class does not exist.
func (r *ClassRepository) AppendMember(ctx context.Context, classID, userID string) error {
	return appendMember(ctx, r.db, classID, userID)
}

func appendMember(ctx context.Context, ext sqlx.ExtContext, classID, userID string) error {
	const query = `UPDATE classes
	SET member_ids = CASE WHEN $2::text = ANY(member_ids) THEN member_ids ELSE array_append(member_ids, $2::text) END
	WHERE id = $1`
	result, err := ext.ExecContext(ctx, query, classID, userID)
	if err != nil {
		return fmt.Errorf("append class member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check class update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
