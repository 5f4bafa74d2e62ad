package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/capgenie/capgenie/internal/config"
	"github.com/capgenie/capgenie/internal/draft"
	"github.com/capgenie/capgenie/internal/journal"
	"github.com/capgenie/capgenie/internal/logging"
	"github.com/capgenie/capgenie/internal/probe"
	"github.com/capgenie/capgenie/internal/projects"
	"github.com/capgenie/capgenie/internal/timeline"
)

// app holds the collaborators every command is built from.
type app struct {
	cfg     *config.ViperConfig
	logger  *slog.Logger
	service *projects.Service
	closers []io.Closer
}

// newApp loads configuration and wires the project service. overrides are
// applied on top of the loaded configuration before anything is built.
func newApp(overrides map[string]any) (*app, error) {
	cfg, err := config.New(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Set(config.KeyLogLevel, logLevel)
	}
	for k, v := range overrides {
		cfg.Set(k, v)
	}

	a := &app{cfg: cfg}
	if path := cfg.LogFile(); path != "" {
		logger, closer, err := logging.NewLoggerWithFile(cfg.LogLevel(), path)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.NewLogger(cfg.LogLevel())
	}

	tmpl, err := loadTemplate(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = projects.NewService(projects.Config{
		Template:    tmpl,
		Recorder:    a.openJournal(),
		Probe:       a.newProber(),
		VideoWidth:  cfg.VideoWidth(),
		VideoHeight: cfg.VideoHeight(),
		Logger:      a.logger,
	})
	return a, nil
}

func loadTemplate(cfg config.Config) (*draft.Template, error) {
	switch {
	case cfg.TemplateManifest() != "":
		return draft.LoadTemplate(cfg.TemplateManifest())
	case cfg.TemplateDir() != "":
		return draft.TemplateFromDir(cfg.TemplateDir())
	default:
		return nil, nil
	}
}

// openJournal returns nil when the journal is disabled or cannot be opened;
// commands still run without run history.
func (a *app) openJournal() *journal.Recorder {
	if !a.cfg.JournalEnabled() {
		return nil
	}
	if err := os.MkdirAll(a.cfg.DataDir(), 0755); err != nil {
		a.logger.Warn("journal disabled: cannot create data dir", "data_dir", logging.SanitizePath(a.cfg.DataDir()), "error", err)
		return nil
	}
	db, err := journal.New(a.cfg.DBPath(), a.logger)
	if err != nil {
		a.logger.Warn("journal disabled: cannot open database", "path", logging.SanitizePath(a.cfg.DBPath()), "error", err)
		return nil
	}
	a.closers = append(a.closers, db)
	return journal.NewRecorder(journal.NewRepository(db.Conn()), a.logger)
}

func (a *app) newProber() timeline.Prober {
	if !a.cfg.ProbeMedia() {
		return nil
	}
	ff, err := probe.New(probe.Config{
		FFprobePath: a.cfg.FFprobePath(),
		Timeout:     a.cfg.ProbeTimeout(),
		Logger:      logging.WithComponent(a.logger, "probe"),
	})
	if err != nil {
		a.logger.Warn("media probing unavailable, using default dimensions", "error", err)
		return nil
	}
	return probe.NewCached(ff, a.logger)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
