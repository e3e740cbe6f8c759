package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harlequingg/todo-webapp/internal/data"
)

const usersCollection = "users"

// MongoStore keeps one document per user with the tasks embedded in it.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	cfg    Config
}

func openMongo(ctx context.Context, cfg Config) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxOpenConnections > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConnections))
	}
	if cfg.MaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxIdleTime)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, unavailable("connect", err)
	}

	s := &MongoStore{
		client: client,
		users:  client.Database(cfg.Database).Collection(usersCollection),
		cfg:    cfg,
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			return unavailable("ping", err)
		}
		return nil
	})
}

// mongoUser decodes both string ids and the ObjectIDs of older documents.
type mongoUser struct {
	ID           any         `bson:"_id"`
	Username     string      `bson:"username"`
	PasswordHash string      `bson:"password_hash"`
	Tasks        []mongoTask `bson:"tasks"`
}

// mongoTask accepts tasks written by earlier deployments, which stored the
// due date as the submitted YYYY-MM-DD string and left fields null.
type mongoTask struct {
	ID          any    `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	DueDate     any    `bson:"due_date"`
	Completed   bool   `bson:"completed"`
}

func (m mongoUser) toUser() *data.User {
	return &data.User{
		ID:             mongoID(m.ID),
		Username:       m.Username,
		PasswordDigest: m.PasswordHash,
		Tasks:          toTasks(m.Tasks),
	}
}

func toTasks(docs []mongoTask) []data.Task {
	tasks := make([]data.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, data.Task{
			ID:          mongoID(d.ID),
			Title:       d.Title,
			Description: d.Description,
			DueDate:     mongoDate(d.DueDate),
			Completed:   d.Completed,
		})
	}
	return tasks
}

func mongoID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// mongoDate reads a BSON datetime or a YYYY-MM-DD string. Anything else,
// including an unparseable string, is treated as no due date.
func mongoDate(v any) *time.Time {
	var t time.Time
	switch d := v.(type) {
	case primitive.DateTime:
		t = d.Time().UTC()
	case time.Time:
		t = d.UTC()
	case string:
		parsed, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	return &t
}

// taskIDs matches a task id stored either as a string or as an ObjectID.
func taskIDs(taskID string) bson.M {
	ids := bson.A{taskID}
	if oid, err := primitive.ObjectIDFromHex(taskID); err == nil {
		ids = append(ids, oid)
	}
	return bson.M{"$in": ids}
}

func (s *MongoStore) FindByUsername(ctx context.Context, username string) (*data.User, error) {
	var doc mongoUser
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return data.ErrUserNotFound
		case err != nil:
			return unavailable("find user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

func (s *MongoStore) Insert(ctx context.Context, u *data.User) error {
	_, err := s.FindByUsername(ctx, u.Username)
	switch {
	case err == nil:
		return data.ErrDuplicateUsername
	case !errors.Is(err, data.ErrUserNotFound):
		return err
	}

	return s.insert(ctx, u)
}

func (s *MongoStore) insert(ctx context.Context, u *data.User) error {
	doc := *u
	if doc.Tasks == nil {
		doc.Tasks = []data.Task{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return data.ErrDuplicateUsername
		}
		return unavailable("insert user", err)
	}
	return nil
}

func (s *MongoStore) AppendTask(ctx context.Context, username string, task data.Task) error {
	n, err := s.update(ctx, "append task",
		bson.M{"username": username},
		bson.M{"$push": bson.M{"tasks": task}},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return data.ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) GetTasks(ctx context.Context, username string) ([]data.Task, error) {
	var doc mongoUser
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		opts := options.FindOne().SetProjection(bson.M{"tasks": 1})
		err := s.users.FindOne(ctx, bson.M{"username": username}, opts).Decode(&doc)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return data.ErrUserNotFound
		case err != nil:
			return unavailable("get tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toTasks(doc.Tasks), nil
}

func (s *MongoStore) RemoveTask(ctx context.Context, username, taskID string) error {
	n, err := s.update(ctx, "remove task",
		bson.M{"username": username, "tasks._id": taskIDs(taskID)},
		bson.M{"$pull": bson.M{"tasks": bson.M{"_id": taskIDs(taskID)}}},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missing(ctx, username)
	}
	return nil
}

func (s *MongoStore) ReplaceTask(ctx context.Context, username, taskID string, task data.Task) error {
	if task.ID != taskID {
		return data.ErrTaskIDMismatch
	}
	n, err := s.update(ctx, "replace task",
		bson.M{"username": username, "tasks._id": taskIDs(taskID)},
		bson.M{"$set": bson.M{"tasks.$": task}},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missing(ctx, username)
	}
	return nil
}

func (s *MongoStore) update(ctx context.Context, op string, filter, update bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, unavailable(op, err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) missing(ctx context.Context, username string) error {
	var n int64
	err := retryRead(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		var err error
		n, err = s.users.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
		if err != nil {
			return unavailable("check user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return data.ErrUserNotFound
	}
	return data.ErrTaskNotFound
}
