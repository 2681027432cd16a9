package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"todo-server/auth"
	"todo-server/confs"
	httpHandler "todo-server/handlers/http"
	"todo-server/logging"
	"todo-server/repositories"
	"todo-server/usecases"
	"todo-server/web"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	app    *gin.Engine
	cfg    *confs.Config
	logger *log.Logger
}

func NewServer(cfg *confs.Config, repos repositories.Set, logger *log.Logger) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	app := gin.New()
	app.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic while handling request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	app.Use(logging.RequestLogger(logger))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	app.SetHTMLTemplate(tmpl)

	if len(cfg.AllowedOrigins) > 0 {
		config := cors.DefaultConfig()
		config.AllowOrigins = cfg.AllowedOrigins
		config.AllowCredentials = true
		config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		app.Use(cors.New(config))
	}

	s := &Server{app: app, cfg: cfg, logger: logger}
	s.routes(repos)
	return s, nil
}

func (s *Server) routes(repos repositories.Set) {
	// Initialize use cases
	userUseCase := usecases.NewUserUseCase(repos.Users, repos.Tx, auth.NewBcryptHasher(s.cfg.BcryptCost), s.logger)
	todoUseCase := usecases.NewTodoUseCase(repos.Todos, repos.Users, repos.Tx, s.logger)

	sessions := auth.NewSessionManager(s.cfg.SessionSecret, s.cfg.SessionTTL, s.cfg.SessionCookieSecure)

	// Initialize handlers
	flash := httpHandler.NewFlashes(s.cfg.SessionCookieSecure)
	authHandler := httpHandler.NewAuthHandler(userUseCase, sessions, flash, s.logger)
	todoHandler := httpHandler.NewTodoHandler(todoUseCase, flash, s.logger)

	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	s.app.Use(sessions.Authenticate(userUseCase, s.logger))

	s.app.POST("/perform_login", authHandler.PerformLogin)

	guest := s.app.Group("", auth.RedirectAuthenticated("/"))
	{
		guest.GET("/login", authHandler.LoginPage)
		guest.GET("/register", authHandler.RegisterPage)
		guest.POST("/perform-register", authHandler.PerformRegister)
	}

	member := s.app.Group("", auth.RequireUser("/login"))
	{
		member.GET("/", todoHandler.Index)
		member.POST("/add", todoHandler.Add)
		member.POST("/toggle/:id", todoHandler.Toggle)
		member.POST("/delete/:id", todoHandler.Delete)
		member.POST("/clear-completed", todoHandler.ClearCompleted)
		member.POST("/complete-all", todoHandler.CompleteAll)
		member.POST("/perform_logout", authHandler.PerformLogout)
		member.POST("/account/delete", authHandler.DeleteAccount)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
