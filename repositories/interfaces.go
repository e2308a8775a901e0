package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ClarenceCat/awf-group-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound means the filter matched nothing. For membership-scoped
	// operations this covers both a missing document and a non-member caller.
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	// Create inserts user and sets user.ID. Returns ErrDuplicate for a taken email.
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIDs returns the users that still exist, keyed by id.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProjectRepository owns project documents. Every method taking a caller id
// folds "caller is a member" into the filter of a single atomic operation.
type ProjectRepository interface {
	ListForMember(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	FindForMember(ctx context.Context, projectID, userID primitive.ObjectID) (*models.Project, error)
	UpdateForMember(ctx context.Context, projectID, userID primitive.ObjectID, fields map[string]string) (*models.Project, error)
	DeleteForMember(ctx context.Context, projectID, userID primitive.ObjectID) error

	AddTask(ctx context.Context, projectID, userID primitive.ObjectID, task models.Task) error
	// UpdateTask additionally requires taskID to exist in the project.
	UpdateTask(ctx context.Context, projectID, userID, taskID primitive.ObjectID, update models.TaskUpdate) (*models.Project, error)
	// RemoveTask is scoped by membership only; an unknown taskID is a no-op.
	RemoveTask(ctx context.Context, projectID, userID, taskID primitive.ObjectID) (*models.Project, error)

	// AddMember fails with ErrNotFound when the caller is not a member or the
	// target already is one.
	AddMember(ctx context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error)
	RemoveMember(ctx context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error)

	// IsAssignedAnywhere reports whether userID is an assignee of any task in any project.
	IsAssignedAnywhere(ctx context.Context, userID primitive.ObjectID) (bool, error)
	// IsAssignedInMemberProject reports whether some project with callerID as
	// member has a task assigned to userID.
	IsAssignedInMemberProject(ctx context.Context, callerID, userID primitive.ObjectID) (bool, error)
	AddAssignee(ctx context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error)
	RemoveAssignee(ctx context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error)
	ListAssignedTasks(ctx context.Context, userID primitive.ObjectID) ([]models.AssignedTask, error)

	Ping(ctx context.Context) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	// ListForUser returns newest first.
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string, createdAt time.Time) error
}
