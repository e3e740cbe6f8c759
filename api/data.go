package main

import (
	"time"

	"github.com/harlequingg/todo-webapp/internal/data"
)

const dueDateLayout = "2006-01-02"

type templateData struct {
	User     *data.User
	Username string
	Tasks    []data.Task
	Form     taskForm
	Query    string
	Errors   map[string]string
	Error    string
}

// taskForm holds the raw values of the add and edit forms.
type taskForm struct {
	ID          string
	Title       string
	Description string
	DueDate     string
	Completed   bool
}

func taskFormFrom(t data.Task) taskForm {
	f := taskForm{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
	}
	if t.DueDate != nil {
		f.DueDate = t.DueDate.Format(dueDateLayout)
	}
	return f
}

// dueDate parses the form's due date; it must already be validated.
func (f taskForm) dueDate() *time.Time {
	if f.DueDate == "" {
		return nil
	}
	d, err := time.Parse(dueDateLayout, f.DueDate)
	if err != nil {
		return nil
	}
	return &d
}
