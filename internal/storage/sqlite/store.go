package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tasktracker/internal/apperror"
	"tasktracker/internal/models"
)

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS employees (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            role TEXT NOT NULL,
            email TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email ON employees(LOWER(email));`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'Pending',
            priority TEXT NOT NULL DEFAULT 'Medium',
            due_date DATETIME,
            employee_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(employee_id) REFERENCES employees(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_employee ON tasks(employee_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE TRIGGER IF NOT EXISTS trg_employees_updated
            AFTER UPDATE ON employees
            FOR EACH ROW BEGIN
                UPDATE employees SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_updated
            AFTER UPDATE ON tasks
            FOR EACH ROW BEGIN
                UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// ListEmployees retrieves all employees, newest first.
func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role, email, created_at, updated_at
        FROM employees ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.Email, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee fetches a single employee together with its tasks.
func (s *Store) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	var e models.Employee
	err := s.db.QueryRowContext(ctx, `SELECT id, name, role, email, created_at, updated_at
        FROM employees WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Role, &e.Email, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Employee{}, apperror.New(apperror.CodeNotFound, "Employee not found")
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("get employee: %w", err)
	}

	tasks, err := s.ListTasks(ctx, TaskFilter{EmployeeID: id})
	if err != nil {
		return models.Employee{}, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	for i := range tasks {
		// The owner summary is redundant inside the employee payload.
		tasks[i].Employee = nil
	}
	e.Tasks = &tasks
	return e, nil
}

// CreateEmployee validates and persists a new employee. The email is stored
// lowercased and must be unique regardless of casing.
func (s *Store) CreateEmployee(ctx context.Context, name, role, email string) (models.Employee, error) {
	fields := map[string]string{
		"name":  name,
		"role":  role,
		"email": email,
	}
	if err := models.Evaluate(models.EmployeeRules, fields, false); err != nil {
		return models.Employee{}, err
	}

	email = models.NormalizeEmail(email)
	taken, err := s.emailExists(ctx, email, 0)
	if err != nil {
		return models.Employee{}, err
	}
	if taken {
		return models.Employee{}, apperror.New(apperror.CodeDuplicate, "Email already exists")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO employees(name, role, email) VALUES(?, ?, ?)`,
		strings.TrimSpace(name), strings.TrimSpace(role), email)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Employee{}, apperror.New(apperror.CodeDuplicate, "Email already exists")
		}
		return models.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Employee{}, fmt.Errorf("employee id: %w", err)
	}
	return s.getEmployeeRow(ctx, id)
}

// UpdateEmployee applies a partial update. Email uniqueness is re-checked
// only when the email actually changes, compared case-insensitively.
func (s *Store) UpdateEmployee(ctx context.Context, id int64, changes map[string]string) (models.Employee, error) {
	current, err := s.getEmployeeRow(ctx, id)
	if err != nil {
		return models.Employee{}, err
	}

	if err := models.Evaluate(models.EmployeeRules, changes, true); err != nil {
		return models.Employee{}, err
	}

	name := current.Name
	role := current.Role
	email := current.Email

	if v, ok := changes["name"]; ok {
		name = strings.TrimSpace(v)
	}
	if v, ok := changes["role"]; ok {
		role = strings.TrimSpace(v)
	}
	if v, ok := changes["email"]; ok {
		normalized := models.NormalizeEmail(v)
		if normalized != current.Email {
			taken, err := s.emailExists(ctx, normalized, id)
			if err != nil {
				return models.Employee{}, err
			}
			if taken {
				return models.Employee{}, apperror.New(apperror.CodeDuplicate, "Email already exists")
			}
		}
		email = normalized
	}

	_, err = s.db.ExecContext(ctx, `UPDATE employees SET name = ?, role = ?, email = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`, name, role, email, id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Employee{}, apperror.New(apperror.CodeDuplicate, "Email already exists")
		}
		return models.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return s.getEmployeeRow(ctx, id)
}

// DeleteEmployee removes an employee and all of its tasks in one transaction,
// so the cascade guarantee holds at the application layer.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete employee: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.New(apperror.CodeNotFound, "Employee not found")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE employee_id = ?`, id); err != nil {
		return fmt.Errorf("delete employee tasks: %w", err)
	}

	return tx.Commit()
}

// TaskFilter narrows a task listing; zero values mean no filtering.
type TaskFilter struct {
	Status     string
	EmployeeID int64
}

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.due_date, t.employee_id,
        t.created_at, t.updated_at, e.id, e.name, e.role, e.email`

// ListTasks returns tasks matching the filter, newest first, each annotated
// with a summary of its owning employee.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN employees e ON e.id = t.employee_id`
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.EmployeeID != 0 {
		conds = append(conds, "t.employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by id with its employee summary.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+`
        FROM tasks t JOIN employees e ON e.id = t.employee_id WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperror.New(apperror.CodeNotFound, "Task not found")
	}
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// CreateTask validates and persists a new task against an existing employee.
// Status defaults to Pending and priority to Medium when omitted.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	fields := map[string]string{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
	}
	if err := models.Evaluate(models.TaskRules, fields, false); err != nil {
		return models.Task{}, err
	}

	if err := s.ensureEmployeeExists(ctx, t.EmployeeID); err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(title, description, status, priority, due_date, employee_id)
        VALUES(?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(t.Title), strings.TrimSpace(t.Description), t.Status, t.Priority, t.DueDate, t.EmployeeID)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// TaskChanges carries the fields of a partial task update. Pointer fields
// distinguish omitted from explicitly set values; DueDateSet marks an
// explicit null that clears the due date.
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	DueDateSet  bool
	EmployeeID  *int64
}

// UpdateTask applies a partial update. A new employee reference is verified
// to exist before the task is moved.
func (s *Store) UpdateTask(ctx context.Context, id int64, changes TaskChanges) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	fields := map[string]string{}
	if changes.Title != nil {
		fields["title"] = *changes.Title
	}
	if changes.Description != nil {
		fields["description"] = *changes.Description
	}
	if changes.Status != nil {
		fields["status"] = *changes.Status
	}
	if changes.Priority != nil {
		fields["priority"] = *changes.Priority
	}
	if err := models.Evaluate(models.TaskRules, fields, true); err != nil {
		return models.Task{}, err
	}

	title := current.Title
	description := current.Description
	status := current.Status
	priority := current.Priority
	dueDate := current.DueDate
	employeeID := current.EmployeeID

	if changes.Title != nil {
		title = strings.TrimSpace(*changes.Title)
	}
	if changes.Description != nil {
		description = strings.TrimSpace(*changes.Description)
	}
	if changes.Status != nil {
		status = *changes.Status
	}
	if changes.Priority != nil {
		priority = *changes.Priority
	}
	if changes.DueDateSet {
		dueDate = changes.DueDate
	}
	if changes.EmployeeID != nil && *changes.EmployeeID != current.EmployeeID {
		if err := s.ensureEmployeeExists(ctx, *changes.EmployeeID); err != nil {
			return models.Task{}, err
		}
		employeeID = *changes.EmployeeID
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
        due_date = ?, employee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, status, priority, dueDate, employeeID, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.New(apperror.CodeNotFound, "Task not found")
	}
	return nil
}

func (s *Store) getEmployeeRow(ctx context.Context, id int64) (models.Employee, error) {
	var e models.Employee
	err := s.db.QueryRowContext(ctx, `SELECT id, name, role, email, created_at, updated_at
        FROM employees WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Role, &e.Email, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Employee{}, apperror.New(apperror.CodeNotFound, "Employee not found")
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *Store) ensureEmployeeExists(ctx context.Context, id int64) error {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("check employee existence: %w", err)
	}
	if count == 0 {
		return apperror.New(apperror.CodeNotFound, "Employee not found")
	}
	return nil
}

func (s *Store) emailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE LOWER(email) = LOWER(?) AND id <> ?`,
		email, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email uniqueness: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var summary models.EmployeeSummary
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &t.EmployeeID,
		&t.CreatedAt, &t.UpdatedAt, &summary.ID, &summary.Name, &summary.Role, &summary.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	t.Employee = &summary
	return t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
