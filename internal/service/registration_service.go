package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/internal/repository"
	"github.com/noah-isme/dlool-api/pkg/changefeed"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

// SignupRequestTopic is the change feed kind for signup requests.
const SignupRequestTopic = "signup_requests"

type registrationUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type registrationSchoolStore interface {
	FindByUniqueName(ctx context.Context, uniqueName string) (*models.School, error)
}

type registrationClassStore interface {
	FindByName(ctx context.Context, schoolID, name string) (*models.Class, error)
	AppendMember(ctx context.Context, classID, userID string) error
}

type signupRequestStore interface {
	Create(ctx context.Context, req *models.SignupRequest) error
	GetByID(ctx context.Context, id string) (*models.SignupRequest, error)
	ExistsPendingForUsername(ctx context.Context, username string) (bool, error)
	ListByClasses(ctx context.Context, classIDs []string, status *models.SignupRequestStatus) ([]models.SignupRequest, error)
	Accept(ctx context.Context, id, operatorID string, processedAt time.Time) (*repository.AcceptResult, error)
	Reject(ctx context.Context, id, operatorID string, processedAt time.Time) (*models.SignupRequest, error)
}

type changePublisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// RegistrationService decides whether a registration creates an account
// directly or queues a signup request, and lets class members accept or
// reject queued requests.
type RegistrationService struct {
	users     registrationUserStore
	schools   registrationSchoolStore
	classes   registrationClassStore
	requests  signupRequestStore
	hasher    PasswordHasher
	validator *Validator
	feed      changePublisher
	audit     AuditRecorder
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// RegistrationDeps groups RegistrationService collaborators.
type RegistrationDeps struct {
	Users     registrationUserStore
	Schools   registrationSchoolStore
	Classes   registrationClassStore
	Requests  signupRequestStore
	Hasher    PasswordHasher
	Validator *Validator
	Feed      changePublisher
	Audit     AuditRecorder
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewRegistrationService constructs the workflow service.
func NewRegistrationService(deps RegistrationDeps) *RegistrationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator()
	}
	if deps.Hasher == nil {
		deps.Hasher = NewBcryptHasher(0)
	}
	return &RegistrationService{
		users:     deps.Users,
		schools:   deps.Schools,
		classes:   deps.Classes,
		requests:  deps.Requests,
		hasher:    deps.Hasher,
		validator: deps.Validator,
		feed:      deps.Feed,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit registers a candidate. When the target class has no members the
// account is created immediately; otherwise a pending signup request is stored
// for a class member to decide on.
//
// In the direct path the membership push happens after the user insert and is
// not rolled back on failure. Such a failure is reported in
// RegisterResult.MembershipErr, logged and counted; the call itself succeeds.
func (s *RegistrationService) Submit(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResult, error) {
	if err := s.validator.Struct(req, "invalid registration payload"); err != nil {
		s.metrics.RecordRegistration("", "invalid")
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, req.Username); err != nil {
		s.metrics.RecordRegistration("", "conflict")
		return nil, err
	}

	school, err := s.schools.FindByUniqueName(ctx, req.School)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Internal(err, "failed to load school")
	}

	class, err := s.classes.FindByName(ctx, school.ID, strings.ToLower(req.Class))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	if class.Occupied() {
		return s.queueRequest(ctx, req, school, class, hash)
	}
	return s.createDirect(ctx, req, school, class, hash)
}

func (s *RegistrationService) ensureUsernameFree(ctx context.Context, username string) error {
	var userExists, requestPending bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		exists, err := s.users.ExistsByUsername(gctx, username)
		userExists = exists
		return err
	})
	g.Go(func() error {
		exists, err := s.requests.ExistsPendingForUsername(gctx, username)
		requestPending = exists
		return err
	})
	if err := g.Wait(); err != nil {
		return appErrors.Internal(err, "failed to check username")
	}
	if userExists || requestPending {
		return appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	}
	return nil
}

func (s *RegistrationService) createDirect(ctx context.Context, req dto.RegisterRequest, school *models.School, class *models.Class, hash string) (*dto.RegisterResult, error) {
	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		DisplayName:  req.Name,
		PasswordHash: hash,
		SchoolID:     school.ID,
		ClassIDs:     pq.StringArray{class.ID},
		Email:        req.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.metrics.RecordRegistration(string(dto.RegistrationModeCreated), "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
		s.metrics.RecordRegistration(string(dto.RegistrationModeCreated), "error")
		return nil, appErrors.Internal(err, "failed to create user")
	}

	result := &dto.RegisterResult{Mode: dto.RegistrationModeCreated, UserID: user.ID}
	if err := s.classes.AppendMember(ctx, class.ID, user.ID); err != nil {
		result.MembershipErr = err
		s.metrics.RecordMembershipFailure()
		s.logger.Error("user created but class membership push failed",
			zap.String("user_id", user.ID),
			zap.String("class_id", class.ID),
			zap.Error(err),
		)
	}

	s.metrics.RecordRegistration(string(dto.RegistrationModeCreated), "success")
	s.record(ctx, &models.AuditLog{
		UserID:     strPtr(user.ID),
		Action:     models.AuditActionUserCreate,
		Resource:   "user",
		ResourceID: strPtr(user.ID),
		NewValues:  auditValues(map[string]string{"username": user.Username, "classId": class.ID}),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})
	return result, nil
}

func (s *RegistrationService) queueRequest(ctx context.Context, req dto.RegisterRequest, school *models.School, class *models.Class, hash string) (*dto.RegisterResult, error) {
	now := s.now()
	signup := &models.SignupRequest{
		ID:                 uuid.NewString(),
		Username:           req.Username,
		DisplayName:        req.Name,
		DetailsSubmittedAt: now,
		SchoolID:           school.ID,
		PasswordHash:       hash,
		Email:              req.Email,
		AcceptedClassIDs:   pq.StringArray{},
		ClassID:            class.ID,
		SubmittedAt:        now,
		Status:             models.SignupRequestStatusPending,
	}
	if err := s.requests.Create(ctx, signup); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.metrics.RecordRegistration(string(dto.RegistrationModePending), "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
		s.metrics.RecordRegistration(string(dto.RegistrationModePending), "error")
		return nil, appErrors.Internal(err, "failed to create signup request")
	}

	s.metrics.RecordRegistration(string(dto.RegistrationModePending), "success")
	s.publish(ctx, signup.ID, signup.Status)
	s.record(ctx, &models.AuditLog{
		Action:     models.AuditActionSignupRequestCreate,
		Resource:   "signup_request",
		ResourceID: strPtr(signup.ID),
		NewValues:  auditValues(map[string]string{"username": signup.Username, "classId": class.ID}),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})
	return &dto.RegisterResult{Mode: dto.RegistrationModePending, RequestID: signup.ID}, nil
}

// Process accepts or rejects a pending request on behalf of operatorID, who
// must be a member of the request's target class. Processing a request that is
// no longer pending always fails with a conflict.
func (s *RegistrationService) Process(ctx context.Context, requestID, operatorID string, decision models.SignupDecision) (*dto.SignupRequestView, error) {
	if decision != models.SignupDecisionAccept && decision != models.SignupDecisionReject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be accept or reject")
	}
	if !validID(requestID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}

	var (
		signup      *models.SignupRequest
		operator    *models.User
		signupErr   error
		operatorErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signup, signupErr = s.requests.GetByID(gctx, requestID)
		return nil
	})
	g.Go(func() error {
		operator, operatorErr = s.users.FindByID(gctx, operatorID)
		return nil
	})
	_ = g.Wait()

	if signupErr != nil {
		if errors.Is(signupErr, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Internal(signupErr, "failed to load request")
	}
	if signup.Status != models.SignupRequestStatusPending {
		s.metrics.RecordDecision(string(decision), "conflict")
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is already processed")
	}
	if operatorErr != nil {
		if errors.Is(operatorErr, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Internal(operatorErr, "failed to load user")
	}
	if !operator.InClass(signup.ClassID) {
		s.metrics.RecordDecision(string(decision), "forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you don't have access to this class yourself")
	}

	processedAt := s.now()
	var (
		updated *models.SignupRequest
		created *models.User
		err     error
	)
	if decision == models.SignupDecisionAccept {
		var res *repository.AcceptResult
		res, err = s.requests.Accept(ctx, signup.ID, operator.ID, processedAt)
		if res != nil {
			updated, created = res.Request, res.User
		}
	} else {
		updated, err = s.requests.Reject(ctx, signup.ID, operator.ID, processedAt)
	}
	if err != nil {
		s.metrics.RecordDecision(string(decision), "error")
		switch {
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, appErrors.Clone(appErrors.ErrConflict, "request is already processed")
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		default:
			return nil, appErrors.Internal(err, "failed to process request")
		}
	}

	s.metrics.RecordDecision(string(decision), "success")
	s.publish(ctx, updated.ID, updated.Status)

	action := models.AuditActionSignupRequestReject
	if decision == models.SignupDecisionAccept {
		action = models.AuditActionSignupRequestAccept
	}
	newValues := map[string]string{"status": string(updated.Status)}
	if created != nil {
		newValues["userId"] = created.ID
	}
	s.record(ctx, &models.AuditLog{
		UserID:     strPtr(operator.ID),
		Action:     action,
		Resource:   "signup_request",
		ResourceID: strPtr(updated.ID),
		OldValues:  auditValues(map[string]string{"status": string(models.SignupRequestStatusPending)}),
		NewValues:  auditValues(newValues),
	})

	view := dto.NewSignupRequestView(updated)
	return &view, nil
}

// List returns the requests targeting any class the operator belongs to.
// rawStatus accepts pending/accepted/rejected or p/a/r; anything else lists
// every status.
func (s *RegistrationService) List(ctx context.Context, operatorID, rawStatus string) ([]dto.SignupRequestView, error) {
	operator, err := s.users.FindByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	var filter *models.SignupRequestStatus
	if status, ok := models.ParseSignupRequestStatus(rawStatus); ok {
		filter = &status
	}

	requests, err := s.requests.ListByClasses(ctx, operator.ClassIDs, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list requests")
	}

	views := make([]dto.SignupRequestView, 0, len(requests))
	for i := range requests {
		views = append(views, dto.NewSignupRequestView(&requests[i]))
	}
	return views, nil
}

// Get returns a single request snapshot.
func (s *RegistrationService) Get(ctx context.Context, requestID string) (*dto.SignupRequestView, error) {
	if !validID(requestID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Internal(err, "failed to load request")
	}
	view := dto.NewSignupRequestView(req)
	return &view, nil
}

func (s *RegistrationService) publish(ctx context.Context, id string, status models.SignupRequestStatus) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, changefeed.Topic(SignupRequestTopic, id), string(status)); err != nil {
		s.logger.Warn("failed to publish signup request change", zap.String("request_id", id), zap.Error(err))
	}
}

func (s *RegistrationService) record(ctx context.Context, entry *models.AuditLog) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
