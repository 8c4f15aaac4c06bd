// Package httpapi exposes the file-storage operations over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, header string) (string, error)
	Logout(ctx context.Context, token string) error
	WhoAmI(ctx context.Context, userID int64) (*models.User, error)
}

type FileService interface {
	Create(ctx context.Context, ownerID int64, in services.CreateFileInput) (*models.File, error)
	Get(ctx context.Context, id, callerID int64, hasCaller bool) (*models.File, error)
	List(ctx context.Context, ownerID, parentID int64, page int) ([]*models.File, error)
	SetVisibility(ctx context.Context, id, callerID int64, isPublic bool) (*models.File, error)
	GetContent(ctx context.Context, id, callerID int64, hasCaller bool, size string) (*services.Content, error)
}

type AppService interface {
	Status(ctx context.Context) services.Status
	Stats(ctx context.Context) (*services.Stats, error)
}

// Authenticator resolves session tokens to user ids.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

type Server struct {
	address string
	users   UserService
	files   FileService
	app     AppService
	auth    Authenticator
	logger  logging.Logger
	engine  *gin.Engine
}

func NewServer(address string, l logging.Logger, us UserService, fs FileService, as AppService, auth Authenticator) *Server {
	s := &Server{
		address: address,
		users:   us,
		files:   fs,
		app:     as,
		auth:    auth,
		logger:  l.With("module", "http_server"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.withRecover(), s.withRequestLog())

	r.GET("/status", s.getStatus)
	r.GET("/stats", s.getStats)

	r.POST("/users", s.postUser)
	r.GET("/users/me", s.requireAuth, s.getMe)

	r.GET("/connect", s.getConnect)
	r.GET("/disconnect", s.getDisconnect)

	r.POST("/files", s.requireAuth, s.postFile)
	r.GET("/files", s.requireAuth, s.listFiles)
	r.GET("/files/:id", s.optionalAuth, s.getFile)
	r.PUT("/files/:id/publish", s.requireAuth, s.setVisibility(true))
	r.PUT("/files/:id/unpublish", s.requireAuth, s.setVisibility(false))
	r.GET("/files/:id/data", s.optionalAuth, s.getFileData)

	return r
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
