package models

import "time"

// Employee is a registered staff member who can own tasks.
type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tasks     *[]Task   `json:"tasks,omitempty"`
}

// EmployeeSummary is the owner annotation nested inside task payloads.
type EmployeeSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Task represents a unit of work assigned to exactly one employee.
type Task struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	EmployeeID  int64            `json:"employeeId"`
	Employee    *EmployeeSummary `json:"employee,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Task status values.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Task priority values.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// TaskStatuses enumerates the statuses a task may hold.
var TaskStatuses = []string{StatusPending, StatusInProgress, StatusCompleted}

// TaskPriorities enumerates the priorities a task may hold.
var TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
