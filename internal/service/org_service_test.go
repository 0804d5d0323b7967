package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

func newOrgService(db *memDB, audit AuditRecorder) *OrgService {
	return NewOrgService(memSchools{db}, memClasses{db}, nil, audit, zap.NewNop())
}

func offset(v float64) *float64 { return &v }

func TestCreateSchoolAndClasses(t *testing.T) {
	db := newMemDB()
	audit := &syncAudit{}
	svc := newOrgService(db, audit)

	school, err := svc.CreateSchool(context.Background(), dto.CreateSchoolRequest{
		Name:           "Hogwarts",
		UniqueName:     "hogwarts",
		TimezoneOffset: offset(5.5),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, school.ID)

	class, err := svc.CreateClass(context.Background(), dto.CreateClassRequest{Name: " 1A ", School: "hogwarts"})
	require.NoError(t, err)
	assert.Equal(t, "1a", class.Name)
	assert.Equal(t, 0, class.Members)

	_, err = svc.CreateClass(context.Background(), dto.CreateClassRequest{Name: "1a", School: "hogwarts"})
	assertAppError(t, err, appErrors.ErrConflict, "class already exists in this school")

	classes, err := svc.ListClasses(context.Background(), "hogwarts")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, class.ID, classes[0].ID)

	assert.Equal(t, []string{models.AuditActionSchoolCreate, models.AuditActionClassCreate}, audit.actions())
}

func TestCreateSchoolValidation(t *testing.T) {
	svc := newOrgService(newMemDB(), nil)

	_, err := svc.CreateSchool(context.Background(), dto.CreateSchoolRequest{Name: "X", UniqueName: "x", TimezoneOffset: offset(1.25)})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = svc.CreateSchool(context.Background(), dto.CreateSchoolRequest{Name: "X", UniqueName: "x"})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = svc.CreateSchool(context.Background(), dto.CreateSchoolRequest{Name: "X", UniqueName: "x", TimezoneOffset: offset(0)})
	require.NoError(t, err)
	_, err = svc.CreateSchool(context.Background(), dto.CreateSchoolRequest{Name: "Y", UniqueName: "x", TimezoneOffset: offset(0)})
	assertAppError(t, err, appErrors.ErrConflict, "")
}

func TestClassOperationsNeedSchool(t *testing.T) {
	svc := newOrgService(newMemDB(), nil)

	_, err := svc.CreateClass(context.Background(), dto.CreateClassRequest{Name: "1a", School: "nowhere"})
	assertAppError(t, err, appErrors.ErrNotFound, "school not found")

	_, err = svc.ListClasses(context.Background(), "nowhere")
	assertAppError(t, err, appErrors.ErrNotFound, "school not found")

	_, err = svc.CreateClass(context.Background(), dto.CreateClassRequest{Name: "   ", School: "nowhere"})
	assertAppError(t, err, appErrors.ErrValidation, "")
}
