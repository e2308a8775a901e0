package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ClarenceCat/awf-group-api/middleware"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/services"

	"github.com/gorilla/mux"
)

type ProjectAPI interface {
	ListProjects(ctx context.Context, caller *models.User) ([]models.ProjectSummary, error)
	CreateProject(ctx context.Context, caller *models.User, req services.CreateProjectRequest) (*models.ProjectSummary, error)
	GetProject(ctx context.Context, caller *models.User, projectID string) (*models.ProjectDetail, error)
	UpdateProject(ctx context.Context, caller *models.User, projectID string, patch models.ProjectPatch) (*models.ProjectSummary, error)
	DeleteProject(ctx context.Context, caller *models.User, projectID string) ([]models.ProjectSummary, error)
	AddTask(ctx context.Context, caller *models.User, projectID string, req services.CreateTaskRequest) (*models.TaskView, error)
	UpdateTask(ctx context.Context, caller *models.User, projectID, taskID string, patch models.TaskPatch) (*models.TaskView, error)
	DeleteTask(ctx context.Context, caller *models.User, projectID, taskID string) ([]models.TaskView, error)
	AddMember(ctx context.Context, caller *models.User, projectID, email string) (*models.Member, error)
	RemoveMember(ctx context.Context, caller *models.User, projectID, email string) ([]models.Member, error)
}

type emailRequest struct {
	Email string `json:"email"`
}

type ProjectHandler struct {
	service ProjectAPI
}

func NewProjectHandler(service ProjectAPI) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	projects, err := h.service.ListProjects(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req services.CreateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	project, err := h.service.CreateProject(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"project": project})
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	project, err := h.service.GetProject(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"project": project})
}

// UpdateProject answers a patch with neither title nor description with 401,
// unlike the other routes where a missing field is a 400. A foreign or
// unknown project is a 400.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var patch models.ProjectPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	project, err := h.service.UpdateProject(r.Context(), user, mux.Vars(r)["id"], patch)
	if errors.Is(err, services.ErrValidation) {
		middleware.WriteError(w, http.StatusUnauthorized, services.Message(err))
		return
	}
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"project": project})
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	projects, err := h.service.DeleteProject(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *ProjectHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req services.CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := h.service.AddTask(r.Context(), user, mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": task})
}

func (h *ProjectHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var patch models.TaskPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	vars := mux.Vars(r)
	task, err := h.service.UpdateTask(r.Context(), user, vars["id"], vars["taskId"], patch)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

func (h *ProjectHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	tasks, err := h.service.DeleteTask(r.Context(), user, vars["id"], vars["taskId"])
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	member, err := h.service.AddMember(r.Context(), user, mux.Vars(r)["id"], req.Email)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"member": member})
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	members, err := h.service.RemoveMember(r.Context(), user, mux.Vars(r)["id"], req.Email)
	if err != nil {
		writeServiceError(w, r, err, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}
