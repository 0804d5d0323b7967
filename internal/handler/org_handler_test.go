package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

type orgServiceMock struct {
	school     *models.School
	class      *dto.ClassView
	classes    []*dto.ClassView
	err        error
	lastSchool dto.CreateSchoolRequest
	lastClass  dto.CreateClassRequest
	lastUnique string
}

func (m *orgServiceMock) CreateSchool(ctx context.Context, req dto.CreateSchoolRequest) (*models.School, error) {
	m.lastSchool = req
	return m.school, m.err
}

func (m *orgServiceMock) GetSchool(ctx context.Context, uniqueName string) (*models.School, error) {
	m.lastUnique = uniqueName
	return m.school, m.err
}

func (m *orgServiceMock) CreateClass(ctx context.Context, req dto.CreateClassRequest) (*dto.ClassView, error) {
	m.lastClass = req
	return m.class, m.err
}

func (m *orgServiceMock) ListClasses(ctx context.Context, uniqueName string) ([]*dto.ClassView, error) {
	m.lastUnique = uniqueName
	return m.classes, m.err
}

func TestCreateSchoolHandler(t *testing.T) {
	svc := &orgServiceMock{school: &models.School{ID: "school-1", UniqueName: "hogwarts"}}
	h := NewOrgHandler(svc)

	c, w := newTestContext(http.MethodPost, "/schools", `{"name":"Hogwarts","uniqueName":"hogwarts","timezoneOffset":1}`, "")
	h.CreateSchool(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.lastSchool.TimezoneOffset)
	assert.Equal(t, float64(1), *svc.lastSchool.TimezoneOffset)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"uniqueName":"hogwarts"`)
}

func TestCreateClassHandler(t *testing.T) {
	svc := &orgServiceMock{class: &dto.ClassView{ID: "class-1", Name: "1a", School: "hogwarts"}}
	h := NewOrgHandler(svc)

	c, w := newTestContext(http.MethodPost, "/classes", `{"name":"1A","school":"hogwarts"}`, "")
	h.CreateClass(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1A", svc.lastClass.Name)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "school not found")
	c, w = newTestContext(http.MethodPost, "/classes", `{"name":"1A","school":"nowhere"}`, "")
	h.CreateClass(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListClassesHandler(t *testing.T) {
	svc := &orgServiceMock{classes: []*dto.ClassView{{ID: "class-1", Name: "1a"}, {ID: "class-2", Name: "1b"}}}
	h := NewOrgHandler(svc)

	c, w := newTestContext(http.MethodGet, "/classes/hogwarts", "", "")
	c.Params = gin.Params{{Key: "school", Value: "hogwarts"}}
	h.ListClasses(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hogwarts", svc.lastUnique)
	assert.EqualValues(t, 2, decodeEnvelope(t, w).Meta["total"])
}
