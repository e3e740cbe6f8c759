package data

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	Completed   bool       `json:"completed" bson:"completed"`
}

// NewTask returns a task with a freshly generated id.
func NewTask(title, description string, dueDate *time.Time, completed bool) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Completed:   completed,
	}
}

// FindTask returns the task with the given id, if present.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Search returns the tasks whose title or description contains query,
// ignoring case. Input order is preserved. An empty or blank query
// matches every task.
func Search(tasks []Task, query string) []Task {
	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			result = append(result, t)
		}
	}
	return result
}
