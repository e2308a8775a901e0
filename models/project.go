package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is the aggregate root. Tasks live inside it as sub-documents.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Created     time.Time            `bson:"created" json:"created"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	Tasks       []Task               `bson:"tasks" json:"tasks"`
}

// HasMember reports whether userID is in the member list.
func (p *Project) HasMember(userID primitive.ObjectID) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// FindTask returns the embedded task with the given id, or nil.
func (p *Project) FindTask(taskID primitive.ObjectID) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return &p.Tasks[i]
		}
	}
	return nil
}

func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{ID: p.ID.Hex(), Title: p.Title, Description: p.Description}
}

// ProjectSummary is the minimal projection returned by list/create/update.
type ProjectSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProjectDetail is the resolved view returned by GET /projects/{id}.
type ProjectDetail struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Created     string     `json:"created"`
	Members     []Member   `json:"members"`
	Tasks       []TaskView `json:"tasks"`
}

// ProjectPatch carries optional fields for a partial update.
// A nil pointer or an empty string leaves the stored value untouched.
type ProjectPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Fields returns the non-empty fields keyed by their bson name.
func (p ProjectPatch) Fields() map[string]string {
	fields := make(map[string]string)
	if present(p.Title) {
		fields["title"] = *p.Title
	}
	if present(p.Description) {
		fields["description"] = *p.Description
	}
	return fields
}

func (p ProjectPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

func present(s *string) bool {
	return s != nil && *s != ""
}
