package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"
)

// TaskService governs task assignment and the caller's assigned-task listing.
type TaskService struct {
	projects repositories.ProjectRepository
	users    repositories.UserRepository
	notifier Notifier
}

func NewTaskService(projects repositories.ProjectRepository, users repositories.UserRepository, notifier Notifier) *TaskService {
	return &TaskService{projects: projects, users: users, notifier: notifier}
}

// Assign adds the user with email to the task's assignees.
//
// The "already assigned" check looks at every task in every project, so a
// user assigned to one task cannot be assigned to a second one.
// TODO: scope the check to (projectID, taskID) once product confirms the intended rule.
func (s *TaskService) Assign(ctx context.Context, caller *models.User, projectID, taskID, email string) (*models.TaskView, error) {
	target, err := lookupEmail(ctx, s.users, email)
	if err != nil {
		return nil, err
	}
	pid, tid, err := parseIDs(projectID, taskID)
	if err != nil {
		return nil, taskNotFound()
	}

	assigned, err := s.projects.IsAssignedAnywhere(ctx, target.ID)
	if err != nil {
		return nil, storageError("Failed to assign user", err)
	}
	if assigned {
		return nil, conflictError("User is already assigned to a task")
	}

	project, err := s.projects.AddAssignee(ctx, pid, caller.ID, tid, target.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundError("Not a member of this project or user already assigned")
	}
	if err != nil {
		return nil, storageError("Failed to assign user", err)
	}

	task := project.FindTask(tid)
	if task == nil {
		return nil, taskNotFound()
	}
	logging.Logger.Infof("Event ID: TASK_ASSIGNED, Description: User %s assigned to task %s by %s", target.ID.Hex(), taskID, caller.ID.Hex())
	s.notifier.Notify(ctx, target.ID, fmt.Sprintf("%s assigned you to task %q in project %q", caller.Display().Name, task.Title, project.Title))

	return s.view(ctx, task)
}

// Unassign removes the user with email from the task's assignees.
func (s *TaskService) Unassign(ctx context.Context, caller *models.User, projectID, taskID, email string) (*models.TaskView, error) {
	target, err := lookupEmail(ctx, s.users, email)
	if err != nil {
		return nil, err
	}
	pid, tid, err := parseIDs(projectID, taskID)
	if err != nil {
		return nil, taskNotFound()
	}

	assigned, err := s.projects.IsAssignedInMemberProject(ctx, caller.ID, target.ID)
	if err != nil {
		return nil, storageError("Failed to unassign user", err)
	}
	if !assigned {
		return nil, notFoundError("User is not assigned to a task")
	}

	project, err := s.projects.RemoveAssignee(ctx, pid, caller.ID, tid, target.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, taskNotFound()
	}
	if err != nil {
		return nil, storageError("Failed to unassign user", err)
	}

	task := project.FindTask(tid)
	if task == nil {
		return nil, taskNotFound()
	}
	return s.view(ctx, task)
}

// ListAssigned returns every task, across all projects, assigned to the caller.
func (s *TaskService) ListAssigned(ctx context.Context, caller *models.User) ([]models.TaskView, error) {
	rows, err := s.projects.ListAssignedTasks(ctx, caller.ID)
	if err != nil {
		return nil, storageError("Failed to retrieve Tasks", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.Task)
	}
	dir, err := loadDirectory(ctx, s.users, assigneeRefs(tasks))
	if err != nil {
		return nil, err
	}

	out := make([]models.TaskView, 0, len(rows))
	for i, row := range rows {
		view := dir.taskView(&tasks[i])
		view.ProjectID = row.ProjectID.Hex()
		out = append(out, view)
	}
	return out, nil
}

func (s *TaskService) view(ctx context.Context, task *models.Task) (*models.TaskView, error) {
	dir, err := loadDirectory(ctx, s.users, task.AssignedTo)
	if err != nil {
		return nil, err
	}
	view := dir.taskView(task)
	return &view, nil
}
