package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClarenceCat/awf-group-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const taskFilterID = "t"

type MongoProjectRepository struct {
	collection *mongo.Collection
}

func NewMongoProjectRepository(collection *mongo.Collection) *MongoProjectRepository {
	return &MongoProjectRepository{collection: collection}
}

// memberScope matches projectID only when userID is in its member list.
func memberScope(projectID, userID primitive.ObjectID) bson.M {
	return bson.M{"_id": projectID, "members": userID}
}

// taskScope narrows memberScope to projects that contain taskID.
func taskScope(projectID, userID, taskID primitive.ObjectID) bson.M {
	filter := memberScope(projectID, userID)
	filter["tasks._id"] = taskID
	return filter
}

// addMemberScope matches when callerID is a member and memberID is not yet one.
func addMemberScope(projectID, callerID, memberID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":     projectID,
		"members": bson.M{"$eq": callerID, "$ne": memberID},
	}
}

// taskUpdateDoc builds the $set document for a partial task update.
// Only supplied fields are written; the matched task is addressed by array filter.
func taskUpdateDoc(update models.TaskUpdate) bson.M {
	set := bson.M{}
	prefix := "tasks.$[" + taskFilterID + "]."
	if update.Title != nil {
		set[prefix+"title"] = *update.Title
	}
	if update.Description != nil {
		set[prefix+"description"] = *update.Description
	}
	if update.DueDate != nil {
		set[prefix+"dueDate"] = *update.DueDate
	}
	return bson.M{"$set": set}
}

func taskArrayFilter(taskID primitive.ObjectID) options.ArrayFilters {
	return options.ArrayFilters{Filters: []interface{}{bson.M{taskFilterID + "._id": taskID}}}
}

func (r *MongoProjectRepository) ListForMember(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	opts := options.Find().SetProjection(bson.M{"title": 1, "description": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

func (r *MongoProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	// $push and $addToSet refuse to operate on a null field
	if project.Members == nil {
		project.Members = []primitive.ObjectID{}
	}
	if project.Tasks == nil {
		project.Tasks = []models.Task{}
	}
	if _, err := r.collection.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *MongoProjectRepository) FindForMember(ctx context.Context, projectID, userID primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := r.collection.FindOne(ctx, memberScope(projectID, userID)).Decode(&project)
	return decodeResult(&project, err)
}

func (r *MongoProjectRepository) UpdateForMember(ctx context.Context, projectID, userID primitive.ObjectID, fields map[string]string) (*models.Project, error) {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	return r.findAndModify(ctx, memberScope(projectID, userID), bson.M{"$set": set}, nil)
}

func (r *MongoProjectRepository) DeleteForMember(ctx context.Context, projectID, userID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, memberScope(projectID, userID))
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProjectRepository) AddTask(ctx context.Context, projectID, userID primitive.ObjectID, task models.Task) error {
	res, err := r.collection.UpdateOne(ctx, memberScope(projectID, userID), bson.M{"$push": bson.M{"tasks": task}})
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProjectRepository) UpdateTask(ctx context.Context, projectID, userID, taskID primitive.ObjectID, update models.TaskUpdate) (*models.Project, error) {
	filters := taskArrayFilter(taskID)
	return r.findAndModify(ctx, taskScope(projectID, userID, taskID), taskUpdateDoc(update), &filters)
}

func (r *MongoProjectRepository) RemoveTask(ctx context.Context, projectID, userID, taskID primitive.ObjectID) (*models.Project, error) {
	update := bson.M{"$pull": bson.M{"tasks": bson.M{"_id": taskID}}}
	return r.findAndModify(ctx, memberScope(projectID, userID), update, nil)
}

func (r *MongoProjectRepository) AddMember(ctx context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error) {
	update := bson.M{"$addToSet": bson.M{"members": memberID}}
	return r.findAndModify(ctx, addMemberScope(projectID, callerID, memberID), update, nil)
}

func (r *MongoProjectRepository) RemoveMember(ctx context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error) {
	update := bson.M{"$pull": bson.M{"members": memberID}}
	return r.findAndModify(ctx, memberScope(projectID, callerID), update, nil)
}

func (r *MongoProjectRepository) IsAssignedAnywhere(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{"tasks.assignedTo": userID})
}

func (r *MongoProjectRepository) IsAssignedInMemberProject(ctx context.Context, callerID, userID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{"members": callerID, "tasks.assignedTo": userID})
}

func (r *MongoProjectRepository) AddAssignee(ctx context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error) {
	filters := taskArrayFilter(taskID)
	update := bson.M{"$addToSet": bson.M{"tasks.$[" + taskFilterID + "].assignedTo": userID}}
	return r.findAndModify(ctx, taskScope(projectID, callerID, taskID), update, &filters)
}

func (r *MongoProjectRepository) RemoveAssignee(ctx context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error) {
	filters := taskArrayFilter(taskID)
	update := bson.M{"$pull": bson.M{"tasks.$[" + taskFilterID + "].assignedTo": userID}}
	return r.findAndModify(ctx, taskScope(projectID, callerID, taskID), update, &filters)
}

// assignedTasksPipeline unwinds every task assigned to userID, keeping the
// owning project id in _id.
func assignedTasksPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tasks.assignedTo": userID}}},
		{{Key: "$unwind", Value: "$tasks"}},
		{{Key: "$match", Value: bson.M{"tasks.assignedTo": userID}}},
		{{Key: "$project", Value: bson.M{"task": "$tasks"}}},
	}
}

func (r *MongoProjectRepository) ListAssignedTasks(ctx context.Context, userID primitive.ObjectID) ([]models.AssignedTask, error) {
	cursor, err := r.collection.Aggregate(ctx, assignedTasksPipeline(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assigned tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.AssignedTask{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode assigned tasks: %w", err)
	}
	return tasks, nil
}

func (r *MongoProjectRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

func (r *MongoProjectRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count projects: %w", err)
	}
	return n > 0, nil
}

func (r *MongoProjectRepository) findAndModify(ctx context.Context, filter, update bson.M, filters *options.ArrayFilters) (*models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if filters != nil {
		opts.SetArrayFilters(*filters)
	}

	var project models.Project
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&project)
	return decodeResult(&project, err)
}

func decodeResult(project *models.Project, err error) (*models.Project, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project store error: %w", err)
	}
	return project, nil
}
