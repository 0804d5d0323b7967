package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/internal/repository"
)

// memDB is an in-memory stand-in for the PostgreSQL stores. Views over it
// satisfy the narrow store interfaces the services depend on.
type memDB struct {
	mu       sync.Mutex
	users    map[string]*models.User
	schools  map[string]*models.School
	classes  map[string]*models.Class
	requests map[string]*models.SignupRequest

	appendMemberErr error
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]*models.User{},
		schools:  map[string]*models.School{},
		classes:  map[string]*models.Class{},
		requests: map[string]*models.SignupRequest{},
	}
}

func cloneIDs(ids pq.StringArray) pq.StringArray {
	return append(pq.StringArray{}, ids...)
}

func (m *memDB) seedSchool(uniqueName string) *models.School {
	m.mu.Lock()
	defer m.mu.Unlock()
	school := &models.School{ID: uuid.NewString(), Name: uniqueName, UniqueName: uniqueName, ClassIDs: pq.StringArray{}}
	m.schools[school.ID] = school
	return school
}

func (m *memDB) seedClass(school *models.School, name string) *models.Class {
	m.mu.Lock()
	defer m.mu.Unlock()
	class := &models.Class{ID: uuid.NewString(), Name: name, SchoolID: school.ID, MemberIDs: pq.StringArray{}}
	m.classes[class.ID] = class
	m.schools[school.ID].ClassIDs = append(m.schools[school.ID].ClassIDs, class.ID)
	return class
}

func (m *memDB) seedMember(class *models.Class, username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: username,
		SchoolID:    class.SchoolID,
		ClassIDs:    pq.StringArray{class.ID},
	}
	m.users[user.ID] = user
	m.classes[class.ID].MemberIDs = append(m.classes[class.ID].MemberIDs, user.ID)
	return user
}

func (m *memDB) class(id string) models.Class {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.classes[id]
	c.MemberIDs = cloneIDs(c.MemberIDs)
	return c
}

func (m *memDB) userByName(username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			c.ClassIDs = cloneIDs(u.ClassIDs)
			return &c
		}
	}
	return nil
}

func (m *memDB) request(id string) models.SignupRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

// usernameTakenLocked must be called with mu held.
func (m *memDB) usernameTakenLocked(username, exceptUserID string) bool {
	for _, u := range m.users {
		if u.Username == username && u.ID != exceptUserID {
			return true
		}
	}
	for _, r := range m.requests {
		if r.Username == username && r.Status == models.SignupRequestStatusPending {
			return true
		}
	}
	return false
}

type memUsers struct{ db *memDB }

func (s memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *u
	c.ClassIDs = cloneIDs(u.ClassIDs)
	return &c, nil
}

func (s memUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u := s.db.userByName(username); u != nil {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.db.userByName(username) != nil, nil
}

func (s memUsers) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.usernameTakenLocked(user.Username, "") {
		return repository.ErrDuplicateKey
	}
	c := *user
	c.ClassIDs = cloneIDs(user.ClassIDs)
	s.db.users[user.ID] = &c
	return nil
}

func (s memUsers) UpdateFields(ctx context.Context, id string, update models.UserUpdate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Username != nil && s.db.usernameTakenLocked(*update.Username, id) {
		return repository.ErrDuplicateKey
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.Email != nil {
		u.Email = update.Email
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s memUsers) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.db.users, id)
	return nil
}

type memSchools struct{ db *memDB }

func (s memSchools) FindByUniqueName(ctx context.Context, uniqueName string) (*models.School, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, school := range s.db.schools {
		if school.UniqueName == uniqueName {
			c := *school
			c.ClassIDs = cloneIDs(school.ClassIDs)
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memSchools) FindByID(ctx context.Context, id string) (*models.School, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	school, ok := s.db.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *school
	c.ClassIDs = cloneIDs(school.ClassIDs)
	return &c, nil
}

func (s memSchools) Create(ctx context.Context, school *models.School) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.schools {
		if existing.UniqueName == school.UniqueName {
			return repository.ErrDuplicateKey
		}
	}
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	if school.ClassIDs == nil {
		school.ClassIDs = pq.StringArray{}
	}
	c := *school
	s.db.schools[school.ID] = &c
	return nil
}

type memClasses struct{ db *memDB }

func (s memClasses) FindByName(ctx context.Context, schoolID, name string) (*models.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, class := range s.db.classes {
		if class.SchoolID == schoolID && class.Name == name {
			c := *class
			c.MemberIDs = cloneIDs(class.MemberIDs)
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memClasses) FindByIDs(ctx context.Context, ids []string) ([]*models.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*models.Class, 0, len(ids))
	for _, id := range ids {
		if class, ok := s.db.classes[id]; ok {
			c := *class
			c.MemberIDs = cloneIDs(class.MemberIDs)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s memClasses) ListBySchool(ctx context.Context, schoolID string) ([]*models.Class, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.Class{}
	for _, id := range s.db.schools[schoolID].ClassIDs {
		c := *s.db.classes[id]
		out = append(out, &c)
	}
	return out, nil
}

func (s memClasses) Create(ctx context.Context, class *models.Class) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	school, ok := s.db.schools[class.SchoolID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, existing := range s.db.classes {
		if existing.SchoolID == class.SchoolID && existing.Name == class.Name {
			return repository.ErrDuplicateKey
		}
	}
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.MemberIDs == nil {
		class.MemberIDs = pq.StringArray{}
	}
	c := *class
	s.db.classes[class.ID] = &c
	school.ClassIDs = append(school.ClassIDs, class.ID)
	return nil
}

func (s memClasses) AppendMember(ctx context.Context, classID, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.appendMemberErr != nil {
		return s.db.appendMemberErr
	}
	return s.db.appendMemberLocked(classID, userID)
}

func (m *memDB) appendMemberLocked(classID, userID string) error {
	class, ok := m.classes[classID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, id := range class.MemberIDs {
		if id == userID {
			return nil
		}
	}
	class.MemberIDs = append(class.MemberIDs, userID)
	return nil
}

type memRequests struct{ db *memDB }

func (s memRequests) Create(ctx context.Context, req *models.SignupRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.usernameTakenLocked(req.Username, "") {
		return repository.ErrDuplicateKey
	}
	c := *req
	s.db.requests[req.ID] = &c
	return nil
}

func (s memRequests) GetByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	req, ok := s.db.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *req
	return &c, nil
}

func (s memRequests) ExistsPendingForUsername(ctx context.Context, username string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.requests {
		if r.Username == username && r.Status == models.SignupRequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s memRequests) ListByClasses(ctx context.Context, classIDs []string, status *models.SignupRequestStatus) ([]models.SignupRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range classIDs {
		wanted[id] = true
	}
	out := []models.SignupRequest{}
	for _, r := range s.db.requests {
		if !wanted[r.ClassID] {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s memRequests) Accept(ctx context.Context, id, operatorID string, processedAt time.Time) (*repository.AcceptResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	req, ok := s.db.requests[id]
	if !ok || req.Status != models.SignupRequestStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	for _, u := range s.db.users {
		if u.Username == req.Username {
			return nil, repository.ErrDuplicateKey
		}
	}
	if _, ok := s.db.classes[req.ClassID]; !ok {
		return nil, sql.ErrNoRows
	}
	user := req.NewUser(uuid.NewString(), processedAt)
	s.db.users[user.ID] = user
	_ = s.db.appendMemberLocked(req.ClassID, user.ID)

	req.Status = models.SignupRequestStatusAccepted
	req.ProcessedBy = strPtr(operatorID)
	req.ProcessedAt = &processedAt
	c := *req
	u := *user
	return &repository.AcceptResult{Request: &c, User: &u}, nil
}

func (s memRequests) Reject(ctx context.Context, id, operatorID string, processedAt time.Time) (*models.SignupRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	req, ok := s.db.requests[id]
	if !ok || req.Status != models.SignupRequestStatusPending {
		return nil, repository.ErrAlreadyProcessed
	}
	req.Status = models.SignupRequestStatusRejected
	req.ProcessedBy = strPtr(operatorID)
	req.ProcessedAt = &processedAt
	c := *req
	return &c, nil
}
