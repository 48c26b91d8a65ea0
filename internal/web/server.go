package web

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrettBuhler/task-stack/internal/model"
	"github.com/BrettBuhler/task-stack/internal/notify"
	"github.com/BrettBuhler/task-stack/internal/service"
)

// UserLookup resolves bearer tokens to users.
type UserLookup interface {
	FindByToken(ctx context.Context, token string) (*model.User, error)
}

// FollowUps creates and deletes follow-ups.
type FollowUps interface {
	Create(ctx context.Context, input model.FollowUpInput) (*model.FollowUp, bool)
	Delete(ctx context.Context, id string) bool
}

// Preferences reads and saves digest settings.
type Preferences interface {
	Get(ctx context.Context, userID string) (*model.EmailPreferences, error)
	Save(ctx context.Context, userID string, input model.PreferencesInput) (*model.EmailPreferences, error)
}

// DigestRunner runs one digest cycle.
type DigestRunner interface {
	Run(ctx context.Context, now time.Time) (service.DigestResult, error)
}

// Deps are the collaborators of the HTTP server. Digest is nil when no
// database was configured explicitly.
type Deps struct {
	Users       UserLookup
	Tasks       *service.TaskStores
	FollowUps   FollowUps
	Toasts      *notify.Toasts
	Platform    notify.Platform
	Preferences Preferences
	Digest      DigestRunner
	DigestKey   string
	Location    *time.Location
	Now         func() time.Time
}

// Server is the Task Stack HTTP API.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer creates a new web server
func NewServer(deps Deps) *Server {
	if deps.Platform == nil {
		deps.Platform = notify.Unsupported{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{deps: deps, router: router}

	router.GET("/healthz", s.handleHealth)
	router.POST("/api/send-digest", s.handleSendDigest)

	api := router.Group("/api", s.requireSession)
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/order", s.handleReorderTasks)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.POST("/tasks/:id/cycle", s.handleCycleTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.POST("/follow-ups", s.handleCreateFollowUp)
		api.DELETE("/follow-ups/:id", s.handleDeleteFollowUp)

		api.GET("/notifications", s.handleNotifications)
		api.GET("/notifications/permission", s.handleGetPermission)
		api.POST("/notifications/permission", s.handleRequestPermission)

		api.GET("/export/markdown", s.handleExportMarkdown)

		api.GET("/preferences", s.handleGetPreferences)
		api.PUT("/preferences", s.handleSavePreferences)
	}

	return s
}

// Handler exposes the router, mainly for tests and http.Server.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run starts the web server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
