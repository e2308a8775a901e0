package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is embedded in Project.Tasks; its id is only unique within the project.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description"`
	Created     time.Time            `bson:"created" json:"created"`
	DueDate     *time.Time           `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	AssignedTo  []primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
}

// TaskView is a task with dates rendered as YYYY-MM-DD and assignees resolved.
// DueDate is "" when unset.
type TaskView struct {
	ProjectID   string   `json:"project_id,omitempty"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Created     string   `json:"created"`
	DueDate     string   `json:"due_date"`
	AssignedTo  []Member `json:"assigned_to"`
}

// AssignedTask is one row of the assigned-tasks aggregation.
type AssignedTask struct {
	ProjectID primitive.ObjectID `bson:"_id"`
	Task      Task               `bson:"task"`
}

// TaskPatch carries optional fields for a partial task update.
// DueDate is the raw client string; parsing happens in the service.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return !present(p.Title) && !present(p.Description) && !present(p.DueDate)
}

// TaskUpdate is a validated TaskPatch ready for the store.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
}
