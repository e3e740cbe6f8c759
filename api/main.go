package main

import (
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}

	b, err := openBackends(cfg, logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer b.close()

	app, err := newApplication(cfg, b.store, b.revoker, logger)
	if err != nil {
		logger.Fatal(err)
	}

	w := logger.WriterLevel(log.ErrorLevel)
	defer w.Close()
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      app.routes(),
		ErrorLog:     stdlog.New(w, "", 0),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Infof("starting %s server on port %d", cfg.env, cfg.port)
	err = srv.ListenAndServe()
	logger.Fatal(err)
}

func newLogger(cfg config) (*log.Logger, error) {
	logger := log.New()
	level, err := log.ParseLevel(cfg.log.level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	switch cfg.log.format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.log.format)
	}
	return logger, nil
}
