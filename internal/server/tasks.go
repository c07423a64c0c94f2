package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/models"
	"tasktracker/internal/storage/sqlite"
)

type taskCreateRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	DueDate     *optionalDate `json:"dueDate"`
	EmployeeID  *int64        `json:"employeeId"`
	Employee    *int64        `json:"employee"`
}

type taskUpdateRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	Priority    *string      `json:"priority"`
	DueDate     optionalDate `json:"dueDate"`
	EmployeeID  *int64       `json:"employeeId"`
	Employee    *int64       `json:"employee"`
}

// resolveEmployeeRef applies the input alias: employeeId is canonical,
// employee is the accepted fallback.
func resolveEmployeeRef(employeeID, employee *int64) *int64 {
	if employeeID != nil {
		return employeeID
	}
	return employee
}

// handleListTasks returns tasks matching the optional status and employeeId
// query filters, each with a nested employee summary.
func (s *Server) handleListTasks(c *gin.Context) {
	filter := sqlite.TaskFilter{Status: c.Query("status")}

	if raw := c.Query("employeeId"); raw != "" {
		employeeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondErrorMessage(c, http.StatusBadRequest, "Invalid employee ID")
			return
		}
		filter.EmployeeID = employeeID
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondList(c, tasks, len(tasks))
}

// handleGetTask returns a single task with its employee summary.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}

// handleCreateTask creates a task against an existing employee.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	employeeRef := resolveEmployeeRef(req.EmployeeID, req.Employee)
	if req.Title == "" || employeeRef == nil {
		respondErrorMessage(c, http.StatusBadRequest, "Please provide title and employee ID")
		return
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		EmployeeID:  *employeeRef,
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.Value
	}

	created, err := s.store.CreateTask(c.Request.Context(), task)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, created, "Task created successfully")
}

// handleUpdateTask applies a partial update, re-verifying the employee when
// the task is reassigned.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	changes := sqlite.TaskChanges{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		EmployeeID:  resolveEmployeeRef(req.EmployeeID, req.Employee),
	}
	if req.DueDate.Set {
		changes.DueDate = req.DueDate.Value
		changes.DueDateSet = true
	}

	task, err := s.store.UpdateTask(c.Request.Context(), id, changes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, task, "Task updated successfully")
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, gin.H{}, "Task deleted successfully")
}

// optionalDate distinguishes an omitted due date from an explicit null, and
// accepts either RFC 3339 timestamps or bare YYYY-MM-DD dates.
type optionalDate struct {
	Set   bool
	Value *time.Time
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("dueDate must be a string")
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return errors.New("dueDate must be a valid date")
		}
	}
	o.Value = &parsed
	return nil
}
