package services

import (
	"context"

	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"
	"github.com/ClarenceCat/awf-group-api/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userDirectory resolves user references to display records. References to
// users that no longer exist are skipped.
type userDirectory struct {
	byID map[primitive.ObjectID]*models.User
}

func loadDirectory(ctx context.Context, users repositories.UserRepository, refs ...[]primitive.ObjectID) (*userDirectory, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, list := range refs {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	byID, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storageError("failed to resolve users", err)
	}
	return &userDirectory{byID: byID}, nil
}

func (d *userDirectory) members(ids []primitive.ObjectID) []models.Member {
	out := make([]models.Member, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.byID[id]; ok {
			out = append(out, u.Display())
		}
	}
	return out
}

func (d *userDirectory) taskView(task *models.Task) models.TaskView {
	return models.TaskView{
		ID:          task.ID.Hex(),
		Title:       task.Title,
		Description: task.Description,
		Created:     utils.FormatDate(task.Created),
		DueDate:     utils.FormatOptionalDate(task.DueDate),
		AssignedTo:  d.members(task.AssignedTo),
	}
}

func (d *userDirectory) taskViews(tasks []models.Task) []models.TaskView {
	out := make([]models.TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, d.taskView(&tasks[i]))
	}
	return out
}

func assigneeRefs(tasks []models.Task) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, t := range tasks {
		ids = append(ids, t.AssignedTo...)
	}
	return ids
}
