package web

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BrettBuhler/task-stack/internal/auth"
	"github.com/BrettBuhler/task-stack/internal/model"
	"github.com/BrettBuhler/task-stack/internal/notify"
	"github.com/BrettBuhler/task-stack/internal/service"
)

const sessionKey = "session"

func (s *Server) requireSession(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing bearer token"})
		return
	}
	user, err := s.deps.Users.FindByToken(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
		return
	}

	sess := auth.Session{UserID: user.ID, Email: user.Email}
	c.Set(sessionKey, sess)
	c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), sess))
	c.Next()
}

func session(c *gin.Context) auth.Session {
	return c.MustGet(sessionKey).(auth.Session)
}

func (s *Server) taskStore(c *gin.Context) (*service.TaskStore, bool) {
	store, err := s.deps.Tasks.For(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
		return nil, false
	}
	return store, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Tasks

func (s *Server) handleListTasks(c *gin.Context) {
	store, ok := s.taskStore(c)
	if !ok {
		return
	}
	tasks := store.Tasks()
	c.JSON(http.StatusOK, gin.H{
		"tasks":   tasks,
		"count":   len(tasks),
		"loading": store.Loading(),
	})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var input model.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(input.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "title is required"})
		return
	}
	store, ok := s.taskStore(c)
	if !ok {
		return
	}

	task := store.Create(c.Request.Context(), input)
	if task == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create task"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var upd model.TaskUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	if upd.Status != nil && !upd.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status"})
		return
	}
	store, ok := s.taskStore(c)
	if !ok {
		return
	}

	task := store.Update(c.Request.Context(), c.Param("id"), upd)
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "failed to update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (s *Server) handleCycleTask(c *gin.Context) {
	store, ok := s.taskStore(c)
	if !ok {
		return
	}
	task := store.CycleStatus(c.Request.Context(), c.Param("id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "failed to update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	store, ok := s.taskStore(c)
	if !ok {
		return
	}
	if !store.Delete(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "failed to delete task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderTasks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	store, ok := s.taskStore(c)
	if !ok {
		return
	}

	if err := store.ReorderIDs(c.Request.Context(), req.IDs); err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error(), "tasks": store.Tasks()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": store.Tasks()})
}

// Follow-ups

func (s *Server) handleCreateFollowUp(c *gin.Context) {
	var input model.FollowUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	if input.TaskID == "" || strings.TrimSpace(input.Title) == "" || input.DueDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task_id, title and due_date are required"})
		return
	}

	fu, ok := s.deps.FollowUps.Create(c.Request.Context(), input)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create follow-up"})
		return
	}
	s.refreshTasks(c)
	c.JSON(http.StatusCreated, gin.H{"success": true, "follow_up": fu})
}

func (s *Server) handleDeleteFollowUp(c *gin.Context) {
	if !s.deps.FollowUps.Delete(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "failed to delete follow-up"})
		return
	}
	s.refreshTasks(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// refreshTasks reloads the caller's task list so nested follow-ups match.
func (s *Server) refreshTasks(c *gin.Context) {
	if store, err := s.deps.Tasks.For(c.Request.Context()); err == nil {
		_ = store.Fetch(c.Request.Context())
	}
}

// Notifications

func (s *Server) handleNotifications(c *gin.Context) {
	toasts := s.deps.Toasts.Active(session(c).UserID)
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": toasts})
}

func (s *Server) handleGetPermission(c *gin.Context) {
	perm := s.deps.Platform.Permission(c.Request.Context(), session(c).UserID)
	c.JSON(http.StatusOK, gin.H{"permission": perm})
}

func (s *Server) handleRequestPermission(c *gin.Context) {
	userID := session(c).UserID
	granted := notify.RequestPermission(c.Request.Context(), s.deps.Platform, userID)
	c.JSON(http.StatusOK, gin.H{
		"granted":    granted,
		"permission": s.deps.Platform.Permission(c.Request.Context(), userID),
	})
}

// Export

func (s *Server) handleExportMarkdown(c *gin.Context) {
	store, ok := s.taskStore(c)
	if !ok {
		return
	}
	md := service.GenerateMarkdown(store.Tasks(), s.deps.Location)
	c.Header("Content-Disposition", `attachment; filename="task-stack.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// Preferences

func (s *Server) handleGetPreferences(c *gin.Context) {
	prefs, err := s.deps.Preferences.Get(c.Request.Context(), session(c).UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (s *Server) handleSavePreferences(c *gin.Context) {
	var input model.PreferencesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	if !input.Frequency.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown frequency"})
		return
	}
	if input.Frequency == model.FrequencyCustom {
		if _, err := service.ParseCustomSchedule(strings.TrimSpace(input.CustomCron)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	prefs, err := s.deps.Preferences.Save(c.Request.Context(), session(c).UserID, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Preferences saved", "preferences": prefs})
}

// Digest

func (s *Server) handleSendDigest(c *gin.Context) {
	key := c.GetHeader("x-api-key")
	if s.deps.DigestKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.deps.DigestKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if s.deps.Digest == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backend not configured"})
		return
	}

	result, err := s.deps.Digest.Run(c.Request.Context(), s.deps.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch preferences"})
		return
	}
	c.JSON(http.StatusOK, result)
}
