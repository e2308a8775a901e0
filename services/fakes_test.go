package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[primitive.ObjectID]models.User)}
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[primitive.ObjectID]*models.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			u := u
			out[id] = &u
		}
	}
	return out, nil
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeProjects mirrors the Mongo repository: every scoped operation checks
// membership and mutates under one lock.
type fakeProjects struct {
	mu       sync.Mutex
	order    []primitive.ObjectID
	projects map[primitive.ObjectID]*models.Project
	err      error
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: make(map[primitive.ObjectID]*models.Project)}
}

func cloneProject(p *models.Project) *models.Project {
	c := *p
	c.Members = append([]primitive.ObjectID{}, p.Members...)
	c.Tasks = make([]models.Task, len(p.Tasks))
	for i, t := range p.Tasks {
		t.AssignedTo = append([]primitive.ObjectID{}, t.AssignedTo...)
		c.Tasks[i] = t
	}
	return &c
}

func (f *fakeProjects) scoped(projectID, userID primitive.ObjectID) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.projects[projectID]
	if !ok || !p.HasMember(userID) {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjects) ListForMember(_ context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Project{}
	for _, id := range f.order {
		if p, ok := f.projects[id]; ok && p.HasMember(userID) {
			out = append(out, models.Project{ID: p.ID, Title: p.Title, Description: p.Description})
		}
	}
	return out, nil
}

func (f *fakeProjects) Create(_ context.Context, project *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	f.projects[project.ID] = cloneProject(project)
	f.order = append(f.order, project.ID)
	return nil
}

func (f *fakeProjects) FindForMember(_ context.Context, projectID, userID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, userID)
	if err != nil {
		return nil, err
	}
	return cloneProject(p), nil
}

func (f *fakeProjects) UpdateForMember(_ context.Context, projectID, userID primitive.ObjectID, fields map[string]string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, userID)
	if err != nil {
		return nil, err
	}
	if v, ok := fields["title"]; ok {
		p.Title = v
	}
	if v, ok := fields["description"]; ok {
		p.Description = v
	}
	return cloneProject(p), nil
}

func (f *fakeProjects) DeleteForMember(_ context.Context, projectID, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.scoped(projectID, userID); err != nil {
		return err
	}
	delete(f.projects, projectID)
	return nil
}

func (f *fakeProjects) AddTask(_ context.Context, projectID, userID primitive.ObjectID, task models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, userID)
	if err != nil {
		return err
	}
	p.Tasks = append(p.Tasks, task)
	return nil
}

func (f *fakeProjects) UpdateTask(_ context.Context, projectID, userID, taskID primitive.ObjectID, update models.TaskUpdate) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, userID)
	if err != nil {
		return nil, err
	}
	t := p.FindTask(taskID)
	if t == nil {
		return nil, repositories.ErrNotFound
	}
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Description != nil {
		t.Description = *update.Description
	}
	if update.DueDate != nil {
		due := *update.DueDate
		t.DueDate = &due
	}
	return cloneProject(p), nil
}

func (f *fakeProjects) RemoveTask(_ context.Context, projectID, userID, taskID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, userID)
	if err != nil {
		return nil, err
	}
	kept := p.Tasks[:0]
	for _, t := range p.Tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	p.Tasks = kept
	return cloneProject(p), nil
}

func (f *fakeProjects) AddMember(_ context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, callerID)
	if err != nil {
		return nil, err
	}
	if p.HasMember(memberID) {
		return nil, repositories.ErrNotFound
	}
	p.Members = append(p.Members, memberID)
	return cloneProject(p), nil
}

func (f *fakeProjects) RemoveMember(_ context.Context, projectID, callerID, memberID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, callerID)
	if err != nil {
		return nil, err
	}
	p.Members = without(p.Members, memberID)
	return cloneProject(p), nil
}

func (f *fakeProjects) IsAssignedAnywhere(_ context.Context, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, p := range f.projects {
		if assignedIn(p, userID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProjects) IsAssignedInMemberProject(_ context.Context, callerID, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, p := range f.projects {
		if p.HasMember(callerID) && assignedIn(p, userID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProjects) AddAssignee(_ context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, callerID)
	if err != nil {
		return nil, err
	}
	t := p.FindTask(taskID)
	if t == nil {
		return nil, repositories.ErrNotFound
	}
	for _, id := range t.AssignedTo {
		if id == userID {
			return cloneProject(p), nil
		}
	}
	t.AssignedTo = append(t.AssignedTo, userID)
	return cloneProject(p), nil
}

func (f *fakeProjects) RemoveAssignee(_ context.Context, projectID, callerID, taskID, userID primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.scoped(projectID, callerID)
	if err != nil {
		return nil, err
	}
	t := p.FindTask(taskID)
	if t == nil {
		return nil, repositories.ErrNotFound
	}
	t.AssignedTo = without(t.AssignedTo, userID)
	return cloneProject(p), nil
}

func (f *fakeProjects) ListAssignedTasks(_ context.Context, userID primitive.ObjectID) ([]models.AssignedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.AssignedTask{}
	for _, id := range f.order {
		p, ok := f.projects[id]
		if !ok {
			continue
		}
		for _, t := range p.Tasks {
			for _, a := range t.AssignedTo {
				if a == userID {
					t.AssignedTo = append([]primitive.ObjectID{}, t.AssignedTo...)
					out = append(out, models.AssignedTask{ProjectID: p.ID, Task: t})
					break
				}
			}
		}
	}
	return out, nil
}

func (f *fakeProjects) Ping(context.Context) error { return f.err }

func assignedIn(p *models.Project, userID primitive.ObjectID) bool {
	for _, t := range p.Tasks {
		for _, a := range t.AssignedTo {
			if a == userID {
				return true
			}
		}
	}
	return false
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent map[primitive.ObjectID][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(map[primitive.ObjectID][]string)}
}

func (n *recordingNotifier) Notify(_ context.Context, userID primitive.ObjectID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], message)
}

// failingNotifications always errors.
type failingNotifications struct{ calls int }

func (f *failingNotifications) Create(context.Context, *models.Notification) error {
	f.calls++
	return errors.New("cassandra unavailable")
}

func (f *failingNotifications) ListForUser(context.Context, string) ([]models.Notification, error) {
	return nil, errors.New("cassandra unavailable")
}

func (f *failingNotifications) MarkRead(context.Context, string, string, time.Time) error {
	return errors.New("cassandra unavailable")
}
