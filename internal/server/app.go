// Package server assembles and runs the development gateway: an in-memory
// stand-in for the Masa auth, settings and bucket services.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/masaclient/internal/logging"
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/config"
	"github.com/dmitrijs2005/masaclient/internal/server/httpapi"
	"github.com/dmitrijs2005/masaclient/internal/server/sessions"
	"github.com/dmitrijs2005/masaclient/internal/server/storage"
	"github.com/dmitrijs2005/masaclient/internal/server/users"
	"github.com/gin-gonic/gin"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	avatars     storage.AvatarStore
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	avatars, err := storage.New(c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	us := users.NewService(
		users.NewMemoryRepository(),
		sessions.NewMemoryRepository(),
		codes.NewStore(c.CodeValidityDuration, c.CodeResendInterval),
		c,
	)

	if c.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	return &App{config: c, logger: logger, userService: us, avatars: avatars}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config, app.logger, app.userService, app.avatars)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "test_mode", app.config.TestMode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
