package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"
	"github.com/ClarenceCat/awf-group-api/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

// ProjectService applies project, task and membership changes. Authorization
// is never checked separately from the write: each repository call carries
// the caller's membership in its filter.
type ProjectService struct {
	projects repositories.ProjectRepository
	users    repositories.UserRepository
	notifier Notifier
	now      func() time.Time
}

func NewProjectService(projects repositories.ProjectRepository, users repositories.UserRepository, notifier Notifier) *ProjectService {
	return &ProjectService{projects: projects, users: users, notifier: notifier, now: time.Now}
}

func (s *ProjectService) ListProjects(ctx context.Context, caller *models.User) ([]models.ProjectSummary, error) {
	projects, err := s.projects.ListForMember(ctx, caller.ID)
	if err != nil {
		return nil, storageError("Failed to retrieve projects", err)
	}
	out := make([]models.ProjectSummary, 0, len(projects))
	for i := range projects {
		out = append(out, projects[i].Summary())
	}
	return out, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, caller *models.User, req CreateProjectRequest) (*models.ProjectSummary, error) {
	if req.Title == "" || req.Description == "" {
		return nil, validationError("Must provide a title and description")
	}

	project := &models.Project{
		Title:       req.Title,
		Description: req.Description,
		Created:     s.timestamp(),
		Members:     []primitive.ObjectID{caller.ID},
		Tasks:       []models.Task{},
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, storageError("Failed to create project", err)
	}
	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s", project.ID.Hex(), caller.ID.Hex())

	summary := project.Summary()
	return &summary, nil
}

func (s *ProjectService) GetProject(ctx context.Context, caller *models.User, projectID string) (*models.ProjectDetail, error) {
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	project, err := s.projects.FindForMember(ctx, pid, caller.ID)
	if err != nil {
		return nil, s.projectErr(err, "Failed to retrieve project")
	}

	dir, err := loadDirectory(ctx, s.users, project.Members, assigneeRefs(project.Tasks))
	if err != nil {
		return nil, err
	}

	return &models.ProjectDetail{
		ID:          project.ID.Hex(),
		Title:       project.Title,
		Description: project.Description,
		Created:     utils.FormatDate(project.Created),
		Members:     dir.members(project.Members),
		Tasks:       dir.taskViews(project.Tasks),
	}, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, caller *models.User, projectID string, patch models.ProjectPatch) (*models.ProjectSummary, error) {
	if patch.IsEmpty() {
		return nil, validationError("Must provide a title or description")
	}
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	project, err := s.projects.UpdateForMember(ctx, pid, caller.ID, patch.Fields())
	if err != nil {
		return nil, s.projectErr(err, "Failed to update project")
	}
	summary := project.Summary()
	return &summary, nil
}

// DeleteProject removes the project and returns the caller's remaining projects.
func (s *ProjectService) DeleteProject(ctx context.Context, caller *models.User, projectID string) ([]models.ProjectSummary, error) {
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	if err := s.projects.DeleteForMember(ctx, pid, caller.ID); err != nil {
		return nil, s.projectErr(err, "Failed to delete project")
	}
	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted by %s", projectID, caller.ID.Hex())

	return s.ListProjects(ctx, caller)
}

func (s *ProjectService) AddTask(ctx context.Context, caller *models.User, projectID string, req CreateTaskRequest) (*models.TaskView, error) {
	if req.Title == "" || req.Description == "" {
		return nil, validationError("Must provide a title and description")
	}
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Created:     s.timestamp(),
		AssignedTo:  []primitive.ObjectID{},
	}
	if req.DueDate != "" {
		due, err := utils.ParseDate(req.DueDate)
		if err != nil {
			return nil, validationError(err.Error())
		}
		task.DueDate = &due
	}

	if err := s.projects.AddTask(ctx, pid, caller.ID, task); err != nil {
		return nil, s.projectErr(err, "Failed to add task")
	}

	view := (&userDirectory{}).taskView(&task)
	return &view, nil
}

func (s *ProjectService) UpdateTask(ctx context.Context, caller *models.User, projectID, taskID string, patch models.TaskPatch) (*models.TaskView, error) {
	if patch.IsEmpty() {
		return nil, validationError("Must provide a title, description or due_date")
	}
	pid, tid, err := parseIDs(projectID, taskID)
	if err != nil {
		return nil, taskNotFound()
	}

	var update models.TaskUpdate
	if patch.Title != nil && *patch.Title != "" {
		update.Title = patch.Title
	}
	if patch.Description != nil && *patch.Description != "" {
		update.Description = patch.Description
	}
	if patch.DueDate != nil && *patch.DueDate != "" {
		due, err := utils.ParseDate(*patch.DueDate)
		if err != nil {
			return nil, validationError(err.Error())
		}
		update.DueDate = &due
	}

	project, err := s.projects.UpdateTask(ctx, pid, caller.ID, tid, update)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, taskNotFound()
	}
	if err != nil {
		return nil, storageError("Failed to update task", err)
	}
	return s.resolveTask(ctx, project, tid)
}

// DeleteTask pulls the task and returns the project's remaining tasks. A task
// id that is not in the project leaves the list unchanged.
func (s *ProjectService) DeleteTask(ctx context.Context, caller *models.User, projectID, taskID string) ([]models.TaskView, error) {
	pid, tid, err := parseIDs(projectID, taskID)
	if err != nil {
		return nil, projectNotFound()
	}

	project, err := s.projects.RemoveTask(ctx, pid, caller.ID, tid)
	if err != nil {
		return nil, s.projectErr(err, "Failed to delete task")
	}

	dir, err := loadDirectory(ctx, s.users, assigneeRefs(project.Tasks))
	if err != nil {
		return nil, err
	}
	return dir.taskViews(project.Tasks), nil
}

func (s *ProjectService) AddMember(ctx context.Context, caller *models.User, projectID, email string) (*models.Member, error) {
	target, err := s.lookupEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	current, err := s.projects.FindForMember(ctx, pid, caller.ID)
	if err != nil {
		return nil, s.projectErr(err, "Failed to add member")
	}
	if current.HasMember(target.ID) {
		return nil, conflictError("User is already a member of this project")
	}

	project, err := s.projects.AddMember(ctx, pid, caller.ID, target.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundError("Project not found or user is already a member")
	}
	if err != nil {
		return nil, storageError("Failed to add member", err)
	}

	s.notifier.Notify(ctx, target.ID, fmt.Sprintf("%s added you to project %q", caller.Display().Name, project.Title))
	member := target.Display()
	return &member, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, caller *models.User, projectID, email string) ([]models.Member, error) {
	target, err := s.lookupEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	pid, err := parseID(projectID)
	if err != nil {
		return nil, projectNotFound()
	}

	if _, err := s.projects.FindForMember(ctx, pid, caller.ID); err != nil {
		return nil, s.projectErr(err, "Failed to remove member")
	}

	project, err := s.projects.RemoveMember(ctx, pid, caller.ID, target.ID)
	if err != nil {
		return nil, s.projectErr(err, "Failed to remove member")
	}

	dir, err := loadDirectory(ctx, s.users, project.Members)
	if err != nil {
		return nil, err
	}
	return dir.members(project.Members), nil
}

func (s *ProjectService) resolveTask(ctx context.Context, project *models.Project, taskID primitive.ObjectID) (*models.TaskView, error) {
	task := project.FindTask(taskID)
	if task == nil {
		return nil, taskNotFound()
	}
	dir, err := loadDirectory(ctx, s.users, task.AssignedTo)
	if err != nil {
		return nil, err
	}
	view := dir.taskView(task)
	return &view, nil
}

func (s *ProjectService) lookupEmail(ctx context.Context, email string) (*models.User, error) {
	return lookupEmail(ctx, s.users, email)
}

func (s *ProjectService) projectErr(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return projectNotFound()
	}
	return storageError(msg, err)
}

// timestamp is truncated to the store's millisecond precision.
func (s *ProjectService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func lookupEmail(ctx context.Context, users repositories.UserRepository, email string) (*models.User, error) {
	if email == "" {
		return nil, validationError("Must provide an email")
	}
	user, err := users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, validationError("User not found")
	}
	if err != nil {
		return nil, storageError("Failed to look up user", err)
	}
	return user, nil
}

func parseID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}

func parseIDs(projectID, taskID string) (primitive.ObjectID, primitive.ObjectID, error) {
	pid, err := parseID(projectID)
	if err != nil {
		return pid, primitive.NilObjectID, err
	}
	tid, err := parseID(taskID)
	return pid, tid, err
}

func projectNotFound() error {
	return notFoundError("Project not found")
}

func taskNotFound() error {
	return notFoundError("Task not found")
}
