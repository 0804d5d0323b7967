package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

type authFixture struct {
	db     *memDB
	audit  *syncAudit
	svc    *AuthService
	class  *models.Class
	school *models.School
	user   *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newMemDB()
	school := db.seedSchool("hogwarts")
	class := db.seedClass(school, "1a")
	user := db.seedMember(class, "alice")

	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	db.users[user.ID].PasswordHash = hash

	audit := &syncAudit{}
	svc := NewAuthService(memUsers{db}, memSchools{db}, memClasses{db}, hasher, nil, audit, zap.NewNop(), AuthConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "dlool-test",
	})
	return &authFixture{db: db, audit: audit, svc: svc, class: class, school: school, user: user}
}

func TestLoginIssuesValidToken(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := f.svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "dlool-test", claims.Issuer)
	assert.Equal(t, []string{models.AuditActionLogin}, f.audit.actions())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "Wr0ng!pass"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials, "")

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: testPassword})
	assertAppError(t, err, appErrors.ErrInvalidCredentials, "")

	_, err = f.svc.Login(context.Background(), models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrValidation, "")
	assert.Empty(t, f.audit.actions())
}

func TestValidateTokenRejectsForeignSignatures(t *testing.T) {
	f := newAuthFixture(t)

	claims := &models.JWTClaims{
		UserID: f.user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(forged)
	assertAppError(t, err, appErrors.ErrUnauthorized, "")

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(expired)
	assertAppError(t, err, appErrors.ErrUnauthorized, "")
}

func TestMeResolvesSchoolAndClasses(t *testing.T) {
	f := newAuthFixture(t)

	me, err := f.svc.Me(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	require.NotNil(t, me.School)
	assert.Equal(t, f.school.ID, me.School.ID)
	require.Len(t, me.Classes, 1)
	assert.Equal(t, "1a", me.Classes[0].Name)
}

func TestUpdateMeChangesFieldsAndPassword(t *testing.T) {
	f := newAuthFixture(t)
	name := "Alice Liddell"
	newPassword := "N3w!password"

	me, err := f.svc.UpdateMe(context.Background(), f.user.ID, dto.UpdateMeRequest{Name: &name, Password: &newPassword})
	require.NoError(t, err)
	assert.Equal(t, name, me.Name)

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: newPassword})
	assert.NoError(t, err)
	stored := f.db.userByName("alice")
	assert.NotEqual(t, newPassword, stored.PasswordHash)
	assert.Contains(t, f.audit.actions(), models.AuditActionUserUpdate)
}

func TestUpdateMeRejectsTakenUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.db.seedMember(f.class, "bob")
	taken := "bob"

	_, err := f.svc.UpdateMe(context.Background(), f.user.ID, dto.UpdateMeRequest{Username: &taken})
	assertAppError(t, err, appErrors.ErrConflict, "username is already taken")

	weak := "weak"
	_, err = f.svc.UpdateMe(context.Background(), f.user.ID, dto.UpdateMeRequest{Password: &weak})
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestDeleteMe(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.DeleteMe(context.Background(), f.user.ID))
	assert.Nil(t, f.db.userByName("alice"))

	err := f.svc.DeleteMe(context.Background(), f.user.ID)
	assertAppError(t, err, appErrors.ErrUnauthorized, "")
}

func TestUserDetails(t *testing.T) {
	f := newAuthFixture(t)

	view, err := f.svc.UserDetails(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Name)
	assert.Equal(t, "hogwarts", view.School)
	assert.Equal(t, []string{"1a"}, view.Classes)

	_, err = f.svc.UserDetails(context.Background(), "nope")
	assertAppError(t, err, appErrors.ErrValidation, "invalid id")
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ResetPassword(context.Background(), "alice", "short")
	assertAppError(t, err, appErrors.ErrValidation, "")

	err = f.svc.ResetPassword(context.Background(), "alice", "R3set!"+strings.Repeat("x", 80))
	assertAppError(t, err, appErrors.ErrValidation, "")

	err = f.svc.ResetPassword(context.Background(), "nobody", "R3set!password")
	assertAppError(t, err, appErrors.ErrNotFound, "user not found")

	require.NoError(t, f.svc.ResetPassword(context.Background(), "alice", "R3set!password"))
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "R3set!password"})
	assert.NoError(t, err)
}
