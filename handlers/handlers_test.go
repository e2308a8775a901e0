package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var alice = &models.User{ID: primitive.NewObjectID(), FirstName: "Alice", LastName: "Smith", Email: "alice@example.com"}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "good" {
		return alice, nil
	}
	return nil, &services.ServiceError{Kind: services.ErrUnauthenticated, Message: "You must be logged in."}
}

type stubAuth struct {
	resp *services.AuthResponse
	err  error
}

func (s *stubAuth) Register(context.Context, services.RegisterRequest) (*services.AuthResponse, error) {
	return s.resp, s.err
}

func (s *stubAuth) Login(context.Context, services.LoginRequest) (*services.AuthResponse, error) {
	return s.resp, s.err
}

// stubProjects returns err from every call and records the arguments it saw.
type stubProjects struct {
	err       error
	projectID string
	taskID    string
	email     string
	patch     models.ProjectPatch
	taskPatch models.TaskPatch
	create    services.CreateProjectRequest
}

func (s *stubProjects) ListProjects(context.Context, *models.User) ([]models.ProjectSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.ProjectSummary{{ID: "p1", Title: "P1", Description: "first"}}, nil
}

func (s *stubProjects) CreateProject(_ context.Context, _ *models.User, req services.CreateProjectRequest) (*models.ProjectSummary, error) {
	s.create = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProjectSummary{ID: "p1", Title: req.Title, Description: req.Description}, nil
}

func (s *stubProjects) GetProject(_ context.Context, _ *models.User, id string) (*models.ProjectDetail, error) {
	s.projectID = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProjectDetail{
		ID:      id,
		Title:   "P1",
		Members: []models.Member{alice.Display()},
		Tasks:   []models.TaskView{{ID: "t1", Title: "T1", AssignedTo: []models.Member{}}},
	}, nil
}

func (s *stubProjects) UpdateProject(_ context.Context, _ *models.User, id string, patch models.ProjectPatch) (*models.ProjectSummary, error) {
	s.projectID, s.patch = id, patch
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProjectSummary{ID: id, Title: *patch.Title}, nil
}

func (s *stubProjects) DeleteProject(_ context.Context, _ *models.User, id string) ([]models.ProjectSummary, error) {
	s.projectID = id
	return []models.ProjectSummary{}, s.err
}

func (s *stubProjects) AddTask(_ context.Context, _ *models.User, id string, req services.CreateTaskRequest) (*models.TaskView, error) {
	s.projectID = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.TaskView{ID: "t1", Title: req.Title, AssignedTo: []models.Member{}}, nil
}

func (s *stubProjects) UpdateTask(_ context.Context, _ *models.User, id, taskID string, patch models.TaskPatch) (*models.TaskView, error) {
	s.projectID, s.taskID, s.taskPatch = id, taskID, patch
	if s.err != nil {
		return nil, s.err
	}
	return &models.TaskView{ID: taskID}, nil
}

func (s *stubProjects) DeleteTask(_ context.Context, _ *models.User, id, taskID string) ([]models.TaskView, error) {
	s.projectID, s.taskID = id, taskID
	if s.err != nil {
		return nil, s.err
	}
	return []models.TaskView{}, nil
}

func (s *stubProjects) AddMember(_ context.Context, _ *models.User, id, email string) (*models.Member, error) {
	s.projectID, s.email = id, email
	if s.err != nil {
		return nil, s.err
	}
	return &models.Member{Name: "Bob Brown", Email: email}, nil
}

func (s *stubProjects) RemoveMember(_ context.Context, _ *models.User, id, email string) ([]models.Member, error) {
	s.projectID, s.email = id, email
	if s.err != nil {
		return nil, s.err
	}
	return []models.Member{alice.Display()}, nil
}

type stubTasks struct {
	err    error
	action string
	email  string
}

func (s *stubTasks) Assign(_ context.Context, _ *models.User, _, taskID, email string) (*models.TaskView, error) {
	s.action, s.email = "assign", email
	if s.err != nil {
		return nil, s.err
	}
	return &models.TaskView{ID: taskID, AssignedTo: []models.Member{{Name: "Bob Brown", Email: email}}}, nil
}

func (s *stubTasks) Unassign(_ context.Context, _ *models.User, _, taskID, email string) (*models.TaskView, error) {
	s.action, s.email = "unassign", email
	if s.err != nil {
		return nil, s.err
	}
	return &models.TaskView{ID: taskID, AssignedTo: []models.Member{}}, nil
}

func (s *stubTasks) ListAssigned(context.Context, *models.User) ([]models.TaskView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.TaskView{{ProjectID: "p1", ID: "t1"}}, nil
}

type stubNotifications struct {
	err error
	id  string
	ts  string
}

func (s *stubNotifications) List(context.Context, *models.User) ([]models.Notification, error) {
	return []models.Notification{{ID: "n1", Message: "hi"}}, s.err
}

func (s *stubNotifications) MarkRead(_ context.Context, _ *models.User, id, createdAt string) error {
	s.id, s.ts = id, createdAt
	return s.err
}

type stubStore struct{ err error }

func (s stubStore) Ping(context.Context) error { return s.err }

type harness struct {
	auth          *stubAuth
	projects      *stubProjects
	tasks         *stubTasks
	notifications *stubNotifications
	handler       http.Handler
}

func newHarness(store Pinger) *harness {
	h := &harness{
		auth:          &stubAuth{},
		projects:      &stubProjects{},
		tasks:         &stubTasks{},
		notifications: &stubNotifications{},
	}
	h.handler = NewRouter(RouterConfig{
		Auth:          h.auth,
		Authenticator: stubAuthenticator{},
		Projects:      h.projects,
		Tasks:         h.tasks,
		Notifications: h.notifications,
		Store:         store,
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func notFound(msg string) error {
	return &services.ServiceError{Kind: services.ErrNotFound, Message: msg}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(stubStore{})
	routes := []struct{ method, path string }{
		{http.MethodGet, "/projects"},
		{http.MethodPost, "/projects"},
		{http.MethodGet, "/projects/p1"},
		{http.MethodDelete, "/projects/p1/members"},
		{http.MethodPost, "/projects/p1/tasks/t1/assigned"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/notifications"},
	}
	for _, route := range routes {
		rec, body := h.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "You must be logged in.", body["error"], route.path)

		rec, _ = h.do(t, route.method, route.path, "bad", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestAuthRoutes_ErrorsAreReportedWith200(t *testing.T) {
	h := newHarness(stubStore{})

	h.auth.err = &services.ServiceError{Kind: services.ErrConflict, Message: "A user with this email already exists"}
	rec, body := h.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A user with this email already exists", body["error"])

	h.auth.err = &services.ServiceError{Kind: services.ErrUnauthenticated, Message: "Invalid password or email"}
	rec, body = h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Invalid password or email", body["error"])

	h.auth.err = &services.ServiceError{Kind: services.ErrStorage, Message: "failed to log in", Err: errors.New("boom")}
	rec, _ = h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	h.auth.err = nil
	h.auth.resp = &services.AuthResponse{Token: "tok", User: alice.Profile()}
	rec, body = h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com", "password": "pw"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "alice@example.com", body["user"].(map[string]interface{})["email"])
}

func TestAuthRoutes_MalformedBody(t *testing.T) {
	h := newHarness(stubStore{})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Credentials are missing")
}

func TestProjectRoutes_Success(t *testing.T) {
	h := newHarness(stubStore{})

	rec, body := h.do(t, http.MethodGet, "/projects", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["projects"], 1)

	rec, body = h.do(t, http.MethodPost, "/projects", "good", map[string]string{"title": "P1", "description": "first"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "P1", body["project"].(map[string]interface{})["title"])
	assert.Equal(t, "first", h.projects.create.Description)

	rec, body = h.do(t, http.MethodGet, "/projects/abc", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", h.projects.projectID)
	project := body["project"].(map[string]interface{})
	assert.Len(t, project["members"], 1)
	task := project["tasks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "", task["due_date"])
	assert.Equal(t, []interface{}{}, task["assigned_to"])

	rec, _ = h.do(t, http.MethodPut, "/projects/abc", "good", map[string]string{"title": "New"})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.projects.patch.Title)
	assert.Nil(t, h.projects.patch.Description)

	rec, body = h.do(t, http.MethodDelete, "/projects/abc", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["projects"])

	rec, body = h.do(t, http.MethodPost, "/projects/abc/tasks", "good", map[string]string{"title": "T1", "description": "d"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "T1", body["task"].(map[string]interface{})["title"])

	rec, _ = h.do(t, http.MethodPut, "/projects/abc/tasks/t9", "good", map[string]string{"due_date": "2024-01-02"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t9", h.projects.taskID)
	assert.Equal(t, "2024-01-02", *h.projects.taskPatch.DueDate)

	rec, body = h.do(t, http.MethodDelete, "/projects/abc/tasks/t9", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "tasks")

	rec, body = h.do(t, http.MethodPost, "/projects/abc/members", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob@example.com", body["member"].(map[string]interface{})["email"])

	rec, body = h.do(t, http.MethodDelete, "/projects/abc/members", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["members"], 1)
}

func TestProjectRoutes_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		err    error
		status int
	}{
		{"detail of foreign project", http.MethodGet, "/projects/abc", nil, notFound("Project not found"), http.StatusUnauthorized},
		{"update of foreign project", http.MethodPut, "/projects/abc", map[string]string{"title": "x"}, notFound("Project not found"), http.StatusBadRequest},
		{"update without fields", http.MethodPut, "/projects/abc", map[string]string{}, &services.ServiceError{Kind: services.ErrValidation, Message: "Must provide a title or description"}, http.StatusUnauthorized},
		{"delete of foreign project", http.MethodDelete, "/projects/abc", nil, notFound("Project not found"), http.StatusBadRequest},
		{"create without fields", http.MethodPost, "/projects", map[string]string{}, &services.ServiceError{Kind: services.ErrValidation, Message: "Must provide a title and description"}, http.StatusBadRequest},
		{"add existing member", http.MethodPost, "/projects/abc/members", map[string]string{"email": "b@x"}, &services.ServiceError{Kind: services.ErrConflict, Message: "User is already a member of this project"}, http.StatusBadRequest},
		{"remove member as non-member", http.MethodDelete, "/projects/abc/members", map[string]string{"email": "b@x"}, notFound("Project not found"), http.StatusUnauthorized},
		{"remove unknown user", http.MethodDelete, "/projects/abc/members", map[string]string{"email": "b@x"}, &services.ServiceError{Kind: services.ErrValidation, Message: "User not found"}, http.StatusBadRequest},
		{"list store failure", http.MethodGet, "/projects", nil, &services.ServiceError{Kind: services.ErrStorage, Message: "Failed to retrieve projects", Err: errors.New("timeout")}, http.StatusInternalServerError},
		{"delete task store failure", http.MethodDelete, "/projects/abc/tasks/t1", nil, &services.ServiceError{Kind: services.ErrStorage, Message: "Failed to delete task", Err: errors.New("timeout")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(stubStore{})
			h.projects.err = tc.err

			rec, body := h.do(t, tc.method, tc.path, "good", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, services.Message(tc.err), body["error"])
			assert.NotContains(t, rec.Body.String(), "timeout")
		})
	}
}

func TestProjectRoutes_MalformedBody(t *testing.T) {
	h := newHarness(stubStore{})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString("nope"))
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request payload")
}

func TestTaskRoutes(t *testing.T) {
	h := newHarness(stubStore{})

	rec, body := h.do(t, http.MethodPost, "/projects/abc/tasks/t1/assigned", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "assign", h.tasks.action)
	assert.Len(t, body["task"].(map[string]interface{})["assigned_to"], 1)

	rec, _ = h.do(t, http.MethodDelete, "/projects/abc/tasks/t1/assigned", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unassign", h.tasks.action)

	rec, body = h.do(t, http.MethodGet, "/tasks", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", body["tasks"].([]interface{})[0].(map[string]interface{})["project_id"])

	h.tasks.err = &services.ServiceError{Kind: services.ErrConflict, Message: "User is already assigned to a task"}
	rec, body = h.do(t, http.MethodPost, "/projects/abc/tasks/t1/assigned", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User is already assigned to a task", body["error"])

	h.tasks.err = notFound("User is not assigned to a task")
	rec, _ = h.do(t, http.MethodDelete, "/projects/abc/tasks/t1/assigned", "good", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.tasks.err = &services.ServiceError{Kind: services.ErrStorage, Message: "Failed to retrieve Tasks", Err: errors.New("x")}
	rec, _ = h.do(t, http.MethodGet, "/tasks", "good", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNotificationRoutes(t *testing.T) {
	h := newHarness(stubStore{})

	rec, body := h.do(t, http.MethodGet, "/notifications", "good", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["notifications"], 1)

	rec, _ = h.do(t, http.MethodPut, "/notifications/n1/read", "good", map[string]string{"created_at": "2024-01-02T03:04:05Z"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "n1", h.notifications.id)
	assert.Equal(t, "2024-01-02T03:04:05Z", h.notifications.ts)

	h.notifications.err = notFound("notification not found")
	rec, _ = h.do(t, http.MethodPut, "/notifications/n2/read", "good", map[string]string{"created_at": "2024-01-02T03:04:05Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, body := newHarness(stubStore{}).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = newHarness(stubStore{err: errors.New("no primary")}).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(stubStore{})
	rec, _ := h.do(t, http.MethodOptions, "/projects", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
