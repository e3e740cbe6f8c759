package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthcheck", app.healthCheckHandler)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /register", app.registerFormHandler)
	mux.HandleFunc("POST /register", app.registerHandler)
	mux.HandleFunc("GET /login", app.loginFormHandler)
	mux.HandleFunc("POST /login", app.loginHandler)
	mux.HandleFunc("GET /logout", app.requireSession(app.logoutHandler))

	mux.HandleFunc("GET /index", app.requireSession(app.indexHandler))
	mux.HandleFunc("GET /add_task", app.requireSession(app.addTaskFormHandler))
	mux.HandleFunc("POST /add_task", app.requireSession(app.addTaskHandler))
	mux.HandleFunc("GET /edit_task/{task_id}", app.requireSession(app.editTaskFormHandler))
	mux.HandleFunc("POST /edit_task/{task_id}", app.requireSession(app.editTaskHandler))
	mux.HandleFunc("GET /list_tasks", app.requireSession(app.listTasksHandler))
	mux.HandleFunc("GET /search_task", app.requireSession(app.searchTaskHandler))
	mux.HandleFunc("POST /search_task", app.requireSession(app.searchTaskHandler))
	mux.HandleFunc("POST /delete_task/{task_id}", app.requireSession(app.deleteTaskHandler))

	var h http.Handler = mux
	if app.config.limiter.enabled {
		h = app.rateLimit(h)
	}
	return app.recoverPanic(app.logRequest(h))
}
