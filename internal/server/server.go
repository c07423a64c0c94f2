package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/apperror"
	"tasktracker/internal/auth"
	"tasktracker/internal/storage/sqlite"
)

// Server provides HTTP handlers for the employee/task tracker backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	auth      *auth.Manager
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, authManager *auth.Manager, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:    router,
		store:     store,
		auth:      authManager,
		logger:    logger,
		staticDir: staticDir,
	}

	router.Use(srv.requestLogger())
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/auth/login", s.handleLogin)

		employees := api.Group("/employees")
		{
			employees.GET("", s.handleListEmployees)
			employees.GET(":id", s.handleGetEmployee)
			employees.POST("", s.handleCreateEmployee)
			employees.PUT(":id", s.handleUpdateEmployee)
			employees.DELETE(":id", s.handleDeleteEmployee)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.GET(":id", s.handleGetTask)

			// Only the mutating task endpoints sit behind the auth gate.
			tasks.POST("", s.protect(), s.handleCreateTask)
			tasks.PUT(":id", s.protect(), s.handleUpdateTask)
			tasks.DELETE(":id", s.protect(), s.handleDeleteTask)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger logs every request with a level picked from the status code.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.RequestURI()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error("request", attrs...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.logger.Warn("request", attrs...)
		default:
			s.logger.Info("request", attrs...)
		}
	}
}

// response is the uniform JSON envelope for every API reply.
type response struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

func respondList(c *gin.Context, data any, count int) {
	c.JSON(http.StatusOK, response{Success: true, Count: &count, Data: data})
}

func respondMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, response{Success: true, Data: data, Message: message})
}

func respondErrorMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, response{Success: false, Error: message})
}

// respondError translates application error codes into HTTP statuses.
// Anything without a known code is logged and hidden behind a generic 500.
func (s *Server) respondError(c *gin.Context, err error) {
	switch apperror.GetCode(err) {
	case apperror.CodeValidation, apperror.CodeDuplicate, apperror.CodeInvalidID:
		respondErrorMessage(c, http.StatusBadRequest, err.Error())
	case apperror.CodeNotFound:
		respondErrorMessage(c, http.StatusNotFound, err.Error())
	case apperror.CodeUnauthorized:
		respondErrorMessage(c, http.StatusUnauthorized, err.Error())
	default:
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		respondErrorMessage(c, http.StatusInternalServerError, "Server error")
	}
}

// parseID converts a path parameter to int64, rejecting malformed keys
// before they reach storage.
func parseID(c *gin.Context, label string) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}
