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

const signupRequestColumns = `id, username, display_name, details_submitted_at, school_id, password_hash, email,
       accepted_class_ids, class_id, submitted_at, status, processed_by, processed_at`

// SignupRequestRepository persists class join requests.
type SignupRequestRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewSignupRequestRepository constructs the repository. observer may be nil.
func NewSignupRequestRepository(db *sqlx.DB, observer QueryObserver) *SignupRequestRepository {
	return &SignupRequestRepository{db: db, observer: observer}
}

// Create inserts a pending request. ErrDuplicateKey is returned when the
// username already has a pending request or belongs to a committed user.
func (r *SignupRequestRepository) Create(ctx context.Context, req *models.SignupRequest) error {
	defer observe(r.observer, "signup_requests.create", time.Now())

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = now
	}
	if req.DetailsSubmittedAt.IsZero() {
		req.DetailsSubmittedAt = req.SubmittedAt
	}
	if req.AcceptedClassIDs == nil {
		req.AcceptedClassIDs = pq.StringArray{}
	}
	req.Status = models.SignupRequestStatusPending
	req.ProcessedBy = nil
	req.ProcessedAt = nil

	return withTx(ctx, r.db, "create signup request", func(tx *sqlx.Tx) error {
		if err := lockUsername(ctx, tx, req.Username); err != nil {
			return err
		}
		var taken bool
		if err := tx.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, req.Username); err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return ErrDuplicateKey
		}

		const query = `INSERT INTO signup_requests
	(id, username, display_name, details_submitted_at, school_id, password_hash, email, accepted_class_ids, class_id, submitted_at, status, processed_by, processed_at)
	VALUES (:id, :username, :display_name, :details_submitted_at, :school_id, :password_hash, :email, :accepted_class_ids, :class_id, :submitted_at, :status, :processed_by, :processed_at)`
		if _, err := tx.NamedExecContext(ctx, query, req); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("create signup request: %w", err)
		}
		return nil
	})
}

// GetByID fetches a request by identifier.
func (r *SignupRequestRepository) GetByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	defer observe(r.observer, "signup_requests.get", time.Now())

	var req models.SignupRequest
	if err := r.db.GetContext(ctx, &req, `SELECT `+signupRequestColumns+` FROM signup_requests WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get signup request: %w", err)
	}
	return &req, nil
}

// ExistsPendingForUsername reports whether username has a pending request.
func (r *SignupRequestRepository) ExistsPendingForUsername(ctx context.Context, username string) (bool, error) {
	defer observe(r.observer, "signup_requests.exists_pending", time.Now())

	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM signup_requests WHERE username = $1 AND status = 'pending')`
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check pending signup request: %w", err)
	}
	return exists, nil
}

// ListByClasses returns requests targeting any of classIDs in submission order,
// optionally restricted to one status.
func (r *SignupRequestRepository) ListByClasses(ctx context.Context, classIDs []string, status *models.SignupRequestStatus) ([]models.SignupRequest, error) {
	defer observe(r.observer, "signup_requests.list", time.Now())

	requests := []models.SignupRequest{}
	if len(classIDs) == 0 {
		return requests, nil
	}

	query := `SELECT ` + signupRequestColumns + ` FROM signup_requests WHERE class_id::text = ANY($1)`
	args := []interface{}{pq.StringArray(classIDs)}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY submitted_at, id`

	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list signup requests: %w", err)
	}
	return requests, nil
}

// AcceptResult carries what a successful accept wrote.
type AcceptResult struct {
	Request *models.SignupRequest
	User    *models.User
}

// Accept turns a pending request into a user in one transaction: the status
// flips to accepted only if it is still pending, the user is inserted and then
// added to the target class. ErrAlreadyProcessed means the request was not
// pending; ErrDuplicateKey means the username was taken since submission. On
// any error nothing is written and the request keeps its status.
func (r *SignupRequestRepository) Accept(ctx context.Context, id, operatorID string, processedAt time.Time) (*AcceptResult, error) {
	defer observe(r.observer, "signup_requests.accept", time.Now())

	var result *AcceptResult
	err := withTx(ctx, r.db, "accept signup request", func(tx *sqlx.Tx) error {
		// Lock the username before the row, the same order Create uses.
		var username string
		if err := tx.GetContext(ctx, &username, `SELECT username FROM signup_requests WHERE id = $1 AND status = 'pending'`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("load signup request: %w", err)
		}
		if err := lockUsername(ctx, tx, username); err != nil {
			return err
		}
		req, err := transition(ctx, tx, id, models.SignupRequestStatusAccepted, operatorID, processedAt)
		if err != nil {
			return err
		}

		user := req.NewUser(uuid.NewString(), processedAt)
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		if err := appendMember(ctx, tx, req.ClassID, user.ID); err != nil {
			return err
		}
		result = &AcceptResult{Request: req, User: user}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reject marks a pending request as rejected. ErrAlreadyProcessed means it was
// not pending.
func (r *SignupRequestRepository) Reject(ctx context.Context, id, operatorID string, processedAt time.Time) (*models.SignupRequest, error) {
	defer observe(r.observer, "signup_requests.reject", time.Now())
	return transition(ctx, r.db, id, models.SignupRequestStatusRejected, operatorID, processedAt)
}

// transition is the compare-and-swap on status: the row changes only while it
// is still pending. A concurrent transition blocks on the row lock and then
// matches nothing.
func transition(ctx context.Context, q sqlx.QueryerContext, id string, status models.SignupRequestStatus, operatorID string, processedAt time.Time) (*models.SignupRequest, error) {
	query := `UPDATE signup_requests SET status = $2, processed_by = $3, processed_at = $4
	WHERE id = $1 AND status = 'pending'
	RETURNING ` + signupRequestColumns
	var req models.SignupRequest
	if err := sqlx.GetContext(ctx, q, &req, query, id, status, operatorID, processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("update signup request status: %w", err)
	}
	return &req, nil
}
