package models

import (
	"net/mail"
	"slices"
	"strings"
	"unicode/utf8"

	"tasktracker/internal/apperror"
)

// FieldRule declares the write-time constraints for a single field. Rules are
// plain data so entity definitions stay independent of any binding framework.
type FieldRule struct {
	Field       string
	Required    bool
	RequiredMsg string
	MinLen      int
	MaxLen      int
	LenMsg      string
	Enum        []string
	EnumMsg     string
	Email       bool
	EmailMsg    string
}

// EmployeeRules constrain employee writes.
var EmployeeRules = []FieldRule{
	{
		Field:       "name",
		Required:    true,
		RequiredMsg: "Employee name is required",
		MinLen:      2,
		MaxLen:      100,
		LenMsg:      "Name must be between 2 and 100 characters",
	},
	{
		Field:       "role",
		Required:    true,
		RequiredMsg: "Employee role is required",
		MinLen:      1,
		MaxLen:      100,
		LenMsg:      "Role cannot exceed 100 characters",
	},
	{
		Field:       "email",
		Required:    true,
		RequiredMsg: "Email is required",
		Email:       true,
		EmailMsg:    "Please provide a valid email address",
	},
}

// TaskRules constrain task writes. The employee reference is checked against
// the store separately, so it carries no rule here.
var TaskRules = []FieldRule{
	{
		Field:       "title",
		Required:    true,
		RequiredMsg: "Task title is required",
		MinLen:      3,
		MaxLen:      200,
		LenMsg:      "Title must be between 3 and 200 characters",
	},
	{
		Field:  "description",
		MaxLen: 1000,
		LenMsg: "Description cannot exceed 1000 characters",
	},
	{
		Field:   "status",
		Enum:    TaskStatuses,
		EnumMsg: "Status must be: Pending, In Progress, or Completed",
	},
	{
		Field:   "priority",
		Enum:    TaskPriorities,
		EnumMsg: "Priority must be: Low, Medium, or High",
	},
}

// Evaluate runs every rule against the supplied field values and returns a
// single validation error joining all violations. When partial is true,
// absent fields are skipped instead of failing their required check, which
// is the contract for partial updates.
func Evaluate(rules []FieldRule, fields map[string]string, partial bool) error {
	var violations []string

	for _, rule := range rules {
		value, present := fields[rule.Field]
		if !present {
			if rule.Required && !partial {
				violations = append(violations, rule.RequiredMsg)
			}
			continue
		}

		value = strings.TrimSpace(value)
		if value == "" {
			if rule.Required {
				violations = append(violations, rule.RequiredMsg)
			} else if rule.Enum != nil {
				violations = append(violations, rule.EnumMsg)
			}
			continue
		}

		if length := utf8.RuneCountInString(value); rule.MaxLen > 0 && (length < rule.MinLen || length > rule.MaxLen) {
			violations = append(violations, rule.LenMsg)
		}

		if rule.Enum != nil && !slices.Contains(rule.Enum, value) {
			violations = append(violations, rule.EnumMsg)
		}

		if rule.Email {
			if _, err := mail.ParseAddress(value); err != nil {
				violations = append(violations, rule.EmailMsg)
			}
		}
	}

	if len(violations) > 0 {
		return apperror.New(apperror.CodeValidation, strings.Join(violations, ", "))
	}
	return nil
}

// NormalizeEmail lowercases an email address before storage or comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
