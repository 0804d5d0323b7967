package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/internal/repository"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateFields(ctx context.Context, id string, update models.UserUpdate) error
	Delete(ctx context.Context, id string) error
}

type authSchoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type authClassReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]*models.Class, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService provides login, token validation and self-service account
// management.
type AuthService struct {
	users     authUserRepository
	schools   authSchoolReader
	classes   authClassReader
	hasher    PasswordHasher
	validator *Validator
	audit     AuditRecorder
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, schools authSchoolReader, classes authClassReader, hasher PasswordHasher, validate *Validator, audit AuditRecorder, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	if config.Expiry <= 0 {
		config.Expiry = time.Hour
	}
	return &AuthService{
		users:     users,
		schools:   schools,
		classes:   classes,
		hasher:    hasher,
		validator: validate,
		audit:     audit,
		logger:    logger,
		config:    config,
	}
}

// Login authenticates a user and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req, "invalid login payload"); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	issuedAt := time.Now().UTC()
	token, err := s.generateToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	s.record(ctx, &models.AuditLog{
		UserID:     strPtr(user.ID),
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: strPtr(user.ID),
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		IssuedAt:  issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Me returns the user with its school and classes resolved.
func (s *AuthService) Me(ctx context.Context, userID string) (*dto.MeView, error) {
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	school, err := s.schools.FindByID(ctx, user.SchoolID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load school")
	}
	classes, err := s.classes.FindByIDs(ctx, user.ClassIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load classes")
	}

	return &dto.MeView{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.DisplayName,
		Email:    user.Email,
		School:   school,
		Classes:  classes,
	}, nil
}

// UpdateMe applies a partial update to the current user. A new password is
// hashed before it is stored.
func (s *AuthService) UpdateMe(ctx context.Context, userID string, req dto.UpdateMeRequest) (*dto.MeView, error) {
	if err := s.validator.Struct(req, "invalid update payload"); err != nil {
		return nil, err
	}

	update := models.UserUpdate{Username: req.Username, DisplayName: req.Name, Email: req.Email}
	changed := []string{}
	if req.Username != nil {
		changed = append(changed, "username")
	}
	if req.Name != nil {
		changed = append(changed, "name")
	}
	if req.Email != nil {
		changed = append(changed, "email")
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to hash password")
		}
		update.PasswordHash = &hash
		changed = append(changed, "password")
	}

	if !update.Empty() {
		if err := s.users.UpdateFields(ctx, userID, update); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicateKey):
				return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
			case errors.Is(err, sql.ErrNoRows):
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
			default:
				return nil, appErrors.Internal(err, "failed to update user")
			}
		}
		s.record(ctx, &models.AuditLog{
			UserID:     strPtr(userID),
			Action:     models.AuditActionUserUpdate,
			Resource:   "user",
			ResourceID: strPtr(userID),
			NewValues:  auditValues(map[string][]string{"fields": changed}),
		})
	}

	return s.Me(ctx, userID)
}

// DeleteMe removes the current user. Class membership lists are left as they
// are.
func (s *AuthService) DeleteMe(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}
	s.record(ctx, &models.AuditLog{
		UserID:     strPtr(userID),
		Action:     models.AuditActionUserDelete,
		Resource:   "user",
		ResourceID: strPtr(userID),
	})
	return nil
}

// UserDetails returns the public profile of another user.
func (s *AuthService) UserDetails(ctx context.Context, userID string) (*dto.UserDetailsView, error) {
	if !validID(userID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	view := &dto.UserDetailsView{ID: user.ID, Name: user.DisplayName, Classes: []string{}}
	school, err := s.schools.FindByID(ctx, user.SchoolID)
	switch {
	case err == nil:
		view.School = school.Name
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load school")
	}

	classes, err := s.classes.FindByIDs(ctx, user.ClassIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load classes")
	}
	for _, class := range classes {
		view.Classes = append(view.Classes, class.Name)
	}
	return view, nil
}

// ResetPassword sets a new password for username. It is an operator action and
// skips the current-password check.
func (s *AuthService) ResetPassword(ctx context.Context, username, plain string) error {
	if !PasswordMeetsPolicy(plain) {
		return appErrors.Validation("invalid password", []appErrors.FieldError{
			{Field: "password", Message: "password must be at least 8 characters long and contain a lowercase letter, an uppercase letter, a digit and a special character"},
		})
	}
	if !PasswordFitsHash(plain) {
		return appErrors.Validation("invalid password", []appErrors.FieldError{
			{Field: "password", Message: "password must be at most 72 bytes long"},
		})
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to load user")
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.users.UpdateFields(ctx, user.ID, models.UserUpdate{PasswordHash: &hash}); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *AuthService) currentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *AuthService) record(ctx context.Context, entry *models.AuditLog) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func (s *AuthService) generateToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}
