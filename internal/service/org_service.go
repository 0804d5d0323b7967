package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/internal/repository"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

type orgSchoolStore interface {
	FindByUniqueName(ctx context.Context, uniqueName string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
}

type orgClassStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

// OrgService manages schools and their classes.
type OrgService struct {
	schools   orgSchoolStore
	classes   orgClassStore
	validator *Validator
	audit     AuditRecorder
	logger    *zap.Logger
}

// NewOrgService constructs an OrgService.
func NewOrgService(schools orgSchoolStore, classes orgClassStore, validate *Validator, audit AuditRecorder, logger *zap.Logger) *OrgService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &OrgService{schools: schools, classes: classes, validator: validate, audit: audit, logger: logger}
}

// CreateSchool registers a school under a unique name.
func (s *OrgService) CreateSchool(ctx context.Context, req dto.CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req, "invalid school payload"); err != nil {
		return nil, err
	}

	school := &models.School{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		UniqueName:     req.UniqueName,
		TimezoneOffset: *req.TimezoneOffset,
	}
	if err := s.schools.Create(ctx, school); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "school with this unique name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create school")
	}

	s.record(ctx, &models.AuditLog{
		Action:     models.AuditActionSchoolCreate,
		Resource:   "school",
		ResourceID: strPtr(school.ID),
		NewValues:  auditValues(map[string]string{"uniqueName": school.UniqueName}),
	})
	return school, nil
}

// GetSchool returns a school by unique name.
func (s *OrgService) GetSchool(ctx context.Context, uniqueName string) (*models.School, error) {
	school, err := s.schools.FindByUniqueName(ctx, uniqueName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Internal(err, "failed to load school")
	}
	return school, nil
}

// CreateClass adds a class to a school. Class names are stored lower-cased and
// are unique per school.
func (s *OrgService) CreateClass(ctx context.Context, req dto.CreateClassRequest) (*dto.ClassView, error) {
	if err := s.validator.Struct(req, "invalid class payload"); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return nil, appErrors.Validation("invalid class payload", []appErrors.FieldError{{Field: "name", Message: "name can't be empty"}})
	}

	school, err := s.GetSchool(ctx, req.School)
	if err != nil {
		return nil, err
	}

	class := &models.Class{Name: name, SchoolID: school.ID}
	if err := s.classes.Create(ctx, class); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists in this school")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		default:
			return nil, appErrors.Internal(err, "failed to create class")
		}
	}

	s.record(ctx, &models.AuditLog{
		Action:     models.AuditActionClassCreate,
		Resource:   "class",
		ResourceID: strPtr(class.ID),
		NewValues:  auditValues(map[string]string{"name": class.Name, "schoolId": school.ID}),
	})
	return classView(class, school), nil
}

// ListClasses returns the classes of a school in creation order.
func (s *OrgService) ListClasses(ctx context.Context, uniqueName string) ([]*dto.ClassView, error) {
	school, err := s.GetSchool(ctx, uniqueName)
	if err != nil {
		return nil, err
	}
	classes, err := s.classes.ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	views := make([]*dto.ClassView, 0, len(classes))
	for _, class := range classes {
		views = append(views, classView(class, school))
	}
	return views, nil
}

func (s *OrgService) record(ctx context.Context, entry *models.AuditLog) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func classView(class *models.Class, school *models.School) *dto.ClassView {
	return &dto.ClassView{ID: class.ID, Name: class.Name, School: school.UniqueName, Members: len(class.MemberIDs)}
}
