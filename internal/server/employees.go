package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/models"
)

type employeeCreateRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type employeeUpdateRequest struct {
	Name  *string `json:"name"`
	Role  *string `json:"role"`
	Email *string `json:"email"`
}

// handleListEmployees returns all employees, newest first.
func (s *Server) handleListEmployees(c *gin.Context) {
	employees, err := s.store.ListEmployees(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	respondList(c, employees, len(employees))
}

// handleGetEmployee returns a single employee together with its tasks.
func (s *Server) handleGetEmployee(c *gin.Context) {
	id, ok := parseID(c, "employee")
	if !ok {
		return
	}

	employee, err := s.store.GetEmployee(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, employee)
}

// handleCreateEmployee registers a new employee.
func (s *Server) handleCreateEmployee(c *gin.Context) {
	var req employeeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Role == "" || req.Email == "" {
		respondErrorMessage(c, http.StatusBadRequest, "Please provide name, role, and email")
		return
	}

	employee, err := s.store.CreateEmployee(c.Request.Context(), req.Name, req.Role, req.Email)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, employee, "Employee created successfully")
}

// handleUpdateEmployee applies a partial update to an employee.
func (s *Server) handleUpdateEmployee(c *gin.Context) {
	id, ok := parseID(c, "employee")
	if !ok {
		return
	}

	var req employeeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	changes := map[string]string{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Role != nil {
		changes["role"] = *req.Role
	}
	if req.Email != nil {
		changes["email"] = *req.Email
	}

	employee, err := s.store.UpdateEmployee(c.Request.Context(), id, changes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, employee, "Employee updated successfully")
}

// handleDeleteEmployee removes an employee and cascades to its tasks.
func (s *Server) handleDeleteEmployee(c *gin.Context) {
	id, ok := parseID(c, "employee")
	if !ok {
		return
	}

	if err := s.store.DeleteEmployee(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, gin.H{}, "Employee and associated tasks deleted successfully")
}
