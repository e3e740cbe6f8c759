package main

import (
	"html/template"

	log "github.com/sirupsen/logrus"

	"github.com/harlequingg/todo-webapp/internal/auth"
	"github.com/harlequingg/todo-webapp/internal/data"
	"github.com/harlequingg/todo-webapp/internal/store"
)

type application struct {
	config    config
	store     store.Store
	gate      *auth.Gate
	templates *template.Template
	logger    *log.Logger
}

func newApplication(cfg config, st store.Store, revoker auth.Revoker, logger *log.Logger) (*application, error) {
	sessions, err := auth.NewSessions(cfg.session.secret, cfg.session.ttl, revoker)
	if err != nil {
		return nil, err
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &application{
		config:    cfg,
		store:     st,
		gate:      auth.NewGate(st, data.NewBcryptHasher(cfg.bcryptCost), sessions, logger),
		templates: templates,
		logger:    logger,
	}, nil
}
