package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/harlequingg/todo-webapp/internal/data"
)

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-type", "application/json")
	status, code := "available", http.StatusOK
	if err := app.store.Ping(r.Context()); err != nil {
		app.logger.WithError(err).Warn("healthcheck: store unreachable")
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	healthCheck := struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
	}{
		Status:      status,
		Environment: app.config.env,
		Version:     version,
	}
	body, err := json.Marshal(healthCheck)
	if err != nil {
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	w.Write(body)
}

func (app *application) registerFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "register.html", templateData{})
}

func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	v := newValidator()
	v.checkUsername(username)
	v.checkPassword(password)
	if v.hasErrors() {
		app.render(w, r, http.StatusUnprocessableEntity, "register.html", templateData{Username: username, Errors: v.errors})
		return
	}

	_, err := app.gate.Register(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, data.ErrDuplicateUsername) {
			app.render(w, r, http.StatusUnprocessableEntity, "register.html", templateData{
				Username: username,
				Errors:   map[string]string{"username": "is already taken"},
			})
			return
		}
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *application) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "login.html", templateData{})
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	sess, err := app.gate.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) || errors.Is(err, data.ErrBadPassword) {
			app.render(w, r, http.StatusUnauthorized, "login.html", templateData{
				Username: username,
				Error:    "invalid username or password",
			})
			return
		}
		app.serverError(w, r, err)
		return
	}
	app.setSessionCookie(w, sess)
	http.Redirect(w, r, "/list_tasks", http.StatusSeeOther)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.gate.Logout(r.Context(), getSessionFromRequest(r)); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *application) indexHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	app.render(w, r, http.StatusOK, "index.html", templateData{User: u, Tasks: u.Tasks})
}

func (app *application) addTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "add_task.html", templateData{User: getUserFromRequest(r)})
}

func (app *application) addTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	form, ok := app.parseTaskForm(w, r)
	if !ok {
		return
	}
	v := newValidator()
	v.checkTask(form)
	if v.hasErrors() {
		app.render(w, r, http.StatusUnprocessableEntity, "add_task.html", templateData{User: u, Form: form, Errors: v.errors})
		return
	}

	task := data.NewTask(form.Title, form.Description, form.dueDate(), form.Completed)
	if err := app.store.AppendTask(r.Context(), u.Username, task); err != nil {
		app.taskError(w, r, err)
		return
	}
	http.Redirect(w, r, "/list_tasks", http.StatusSeeOther)
}

func (app *application) editTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	tasks, err := app.store.GetTasks(r.Context(), u.Username)
	if err != nil {
		app.taskError(w, r, err)
		return
	}
	task, ok := data.FindTask(tasks, r.PathValue("task_id"))
	if !ok {
		app.taskError(w, r, data.ErrTaskNotFound)
		return
	}
	app.render(w, r, http.StatusOK, "edit_task.html", templateData{User: u, Form: taskFormFrom(task)})
}

func (app *application) editTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	taskID := r.PathValue("task_id")
	form, ok := app.parseTaskForm(w, r)
	if !ok {
		return
	}
	form.ID = taskID
	v := newValidator()
	v.checkTask(form)
	if v.hasErrors() {
		app.render(w, r, http.StatusUnprocessableEntity, "edit_task.html", templateData{User: u, Form: form, Errors: v.errors})
		return
	}

	task := data.Task{
		ID:          taskID,
		Title:       form.Title,
		Description: form.Description,
		DueDate:     form.dueDate(),
		Completed:   form.Completed,
	}
	if err := app.store.ReplaceTask(r.Context(), u.Username, taskID, task); err != nil {
		app.taskError(w, r, err)
		return
	}
	http.Redirect(w, r, "/list_tasks", http.StatusSeeOther)
}

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	tasks, err := app.store.GetTasks(r.Context(), u.Username)
	if err != nil {
		app.taskError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "list_tasks.html", templateData{User: u, Tasks: tasks})
}

func (app *application) searchTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	query := r.Form.Get("query")
	if query == "" {
		query = r.Form.Get("q")
	}
	tasks, err := app.store.GetTasks(r.Context(), u.Username)
	if err != nil {
		app.taskError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "search_task.html", templateData{
		User:  u,
		Query: query,
		Tasks: data.Search(tasks, query),
	})
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	if err := app.store.RemoveTask(r.Context(), u.Username, r.PathValue("task_id")); err != nil {
		app.taskError(w, r, err)
		return
	}
	http.Redirect(w, r, "/list_tasks", http.StatusSeeOther)
}

func (app *application) parseTaskForm(w http.ResponseWriter, r *http.Request) (taskForm, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return taskForm{}, false
	}
	return taskForm{
		Title:       strings.TrimSpace(r.PostForm.Get("title")),
		Description: strings.TrimSpace(r.PostForm.Get("description")),
		DueDate:     strings.TrimSpace(r.PostForm.Get("due_date")),
		Completed:   r.PostForm.Get("completed") == "on",
	}, true
}

// taskError answers a failed task operation. A user that disappeared
// mid-session is treated as logged out.
func (app *application) taskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, data.ErrTaskNotFound):
		http.Error(w, "task not found", http.StatusNotFound)
	case errors.Is(err, data.ErrUserNotFound):
		app.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		app.serverError(w, r, err)
	}
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, data.ErrStorageUnavailable) {
		code = http.StatusServiceUnavailable
	}
	app.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	http.Error(w, http.StatusText(code), code)
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		return ""
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}
