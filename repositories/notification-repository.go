package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"

	"github.com/gocql/gocql"
)

type CassandraNotificationRepository struct {
	session *gocql.Session
}

// NewCassandraNotificationRepository connects to hosts, creates keyspace and
// the notifications table when missing, and returns a repository bound to it.
func NewCassandraNotificationRepository(hosts []string, keyspace string) (*CassandraNotificationRepository, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "system"
	cluster.Timeout = 5 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
		 WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace %s: %w", keyspace, err)
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keyspace %s: %w", keyspace, err)
	}

	repo := &CassandraNotificationRepository{session: session}
	if err := repo.createTable(); err != nil {
		session.Close()
		return nil, err
	}

	logging.Logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s", keyspace)
	return repo, nil
}

func (r *CassandraNotificationRepository) createTable() error {
	err := r.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			user_id TEXT,
			created_at TIMESTAMP,
			id UUID,
			message TEXT,
			is_read BOOLEAN,
			PRIMARY KEY ((user_id), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}
	return nil
}

func (r *CassandraNotificationRepository) Close() {
	r.session.Close()
}

func (r *CassandraNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = gocql.TimeUUID().String()
	}
	id, err := gocql.ParseUUID(n.ID)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}

	err = r.session.Query(
		`INSERT INTO notifications (user_id, created_at, id, message, is_read) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.CreatedAt, id, n.Message, n.IsRead,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *CassandraNotificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	iter := r.session.Query(
		`SELECT id, user_id, message, created_at, is_read FROM notifications WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	notifications := []models.Notification{}
	var (
		id gocql.UUID
		n  models.Notification
	)
	for iter.Scan(&id, &n.UserID, &n.Message, &n.CreatedAt, &n.IsRead) {
		n.ID = id.String()
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *CassandraNotificationRepository) MarkRead(ctx context.Context, userID, notificationID string, createdAt time.Time) error {
	id, err := gocql.ParseUUID(notificationID)
	if err != nil {
		return ErrNotFound
	}

	applied, err := r.session.Query(
		`UPDATE notifications SET is_read = true WHERE user_id = ? AND created_at = ? AND id = ? IF EXISTS`,
		userID, createdAt, id,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

// MemoryNotificationRepository keeps the latest notifications per user in
// process. Used when Cassandra is not configured.
type MemoryNotificationRepository struct {
	mu      sync.Mutex
	perUser int
	byUser  map[string][]models.Notification
}

func NewMemoryNotificationRepository(perUser int) *MemoryNotificationRepository {
	return &MemoryNotificationRepository{perUser: perUser, byUser: make(map[string][]models.Notification)}
}

func (r *MemoryNotificationRepository) Create(_ context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = gocql.TimeUUID().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.byUser[n.UserID], *n)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > r.perUser {
		list = list[:r.perUser]
	}
	r.byUser[n.UserID] = list
	return nil
}

func (r *MemoryNotificationRepository) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Notification, len(r.byUser[userID]))
	copy(out, r.byUser[userID])
	return out, nil
}

func (r *MemoryNotificationRepository) MarkRead(_ context.Context, userID, notificationID string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.byUser[userID] {
		if n.ID == notificationID && n.CreatedAt.Equal(createdAt) {
			r.byUser[userID][i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}
