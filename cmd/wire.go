package cmd

import (
	"fmt"
	"log/slog"

	"github.com/hazuki-dev/vrcwatch/internal/adapters/cookies"
	"github.com/hazuki-dev/vrcwatch/internal/adapters/notify"
	"github.com/hazuki-dev/vrcwatch/internal/config"
	"github.com/hazuki-dev/vrcwatch/internal/platform/logging"
	"github.com/hazuki-dev/vrcwatch/internal/platform/paths"
	"github.com/hazuki-dev/vrcwatch/internal/ports"
	"github.com/hazuki-dev/vrcwatch/internal/ratelimit"
	"github.com/hazuki-dev/vrcwatch/internal/vrchat"
)

type app struct {
	settings  config.Settings
	logger    *slog.Logger
	logClose  func() error
	session   *vrchat.Session
	directory *vrchat.Directory
	notifier  ports.Notifier
}

func wireApp() (*app, error) {
	appDir, err := paths.AppDir()
	if err != nil {
		return nil, fmt.Errorf("wire app directory: %w", err)
	}

	settings, err := config.Load(appDir)
	if err != nil {
		return nil, fmt.Errorf("wire settings: %w", err)
	}

	logFile, err := paths.LogFile()
	if err != nil {
		return nil, fmt.Errorf("wire log file: %w", err)
	}
	logger, logClose, err := logging.New(logging.Config{Debug: settings.Debug, LogFile: logFile})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	limiter, err := ratelimit.New(settings.RateBurst, settings.RefillPerSecond())
	if err != nil {
		return nil, fmt.Errorf("wire rate limiter: %w", err)
	}

	cookieFile, err := paths.CookieFile()
	if err != nil {
		return nil, fmt.Errorf("wire cookie store: %w", err)
	}

	session, err := vrchat.NewSession(vrchat.SessionConfig{
		Credentials: settings.Credentials(),
		Limiter:     limiter,
		CookieStore: cookies.NewStore(cookieFile),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire session: %w", err)
	}

	directory, err := vrchat.NewDirectory(session, logger)
	if err != nil {
		return nil, fmt.Errorf("wire friend directory: %w", err)
	}

	return &app{
		settings:  settings,
		logger:    logger,
		logClose:  logClose,
		session:   session,
		directory: directory,
		notifier:  notify.NewDesktop(logger),
	}, nil
}
