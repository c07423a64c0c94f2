package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tasktracker/internal/auth"
	"tasktracker/internal/models"
	"tasktracker/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	authManager := auth.NewManager("test-secret", "admin@company.com", "admin123", 24*time.Hour)
	return New(store, authManager, logger, "")
}

type envelope struct {
	Success bool            `json:"success"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
}

func doRequest(t *testing.T, srv *Server, method, path, body, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	srv.Engine().ServeHTTP(recorder, req)

	var env envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return recorder.Code, env
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	code, env := doRequest(t, srv, http.MethodPost, "/api/auth/login",
		`{"email":"admin@company.com","password":"admin123"}`, "")
	if code != http.StatusOK || env.Token == "" {
		t.Fatalf("login failed: status %d, body %+v", code, env)
	}
	return env.Token
}

func createEmployee(t *testing.T, srv *Server, body string) models.Employee {
	t.Helper()
	code, env := doRequest(t, srv, http.MethodPost, "/api/employees", body, "")
	if code != http.StatusCreated {
		t.Fatalf("create employee failed: status %d, error %s", code, env.Error)
	}
	var employee models.Employee
	if err := json.Unmarshal(env.Data, &employee); err != nil {
		t.Fatalf("decode employee: %v", err)
	}
	return employee
}

func TestEmployeeLifecycle(t *testing.T) {
	srv := newTestServer(t)

	employee := createEmployee(t, srv,
		`{"name":"Alice Johnson","role":"Frontend Developer","email":"Alice@Co.com"}`)
	if employee.Email != "alice@co.com" {
		t.Fatalf("expected lowercased email, got %s", employee.Email)
	}

	// Duplicate in a different casing is rejected.
	code, env := doRequest(t, srv, http.MethodPost, "/api/employees",
		`{"name":"Imposter","role":"Dev","email":"ALICE@CO.com"}`, "")
	if code != http.StatusBadRequest || env.Error != "Email already exists" {
		t.Fatalf("expected duplicate rejection, got %d %s", code, env.Error)
	}

	code, env = doRequest(t, srv, http.MethodGet, "/api/employees", "", "")
	if code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("expected list with count 1, got %d %+v", code, env)
	}

	code, env = doRequest(t, srv, http.MethodPut,
		"/api/employees/"+itoa(employee.ID), `{"role":"Tech Lead"}`, "")
	if code != http.StatusOK {
		t.Fatalf("update failed: %d %s", code, env.Error)
	}
	var updated models.Employee
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode employee: %v", err)
	}
	if updated.Role != "Tech Lead" || updated.Name != "Alice Johnson" {
		t.Fatalf("partial update went wrong: %+v", updated)
	}

	code, _ = doRequest(t, srv, http.MethodDelete, "/api/employees/"+itoa(employee.ID), "", "")
	if code != http.StatusOK {
		t.Fatalf("delete failed with status %d", code)
	}

	code, _ = doRequest(t, srv, http.MethodGet, "/api/employees/"+itoa(employee.ID), "", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestEmployeeValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	code, env := doRequest(t, srv, http.MethodPost, "/api/employees",
		`{"name":"Alice Johnson"}`, "")
	if code != http.StatusBadRequest || env.Error != "Please provide name, role, and email" {
		t.Fatalf("expected missing-fields rejection, got %d %s", code, env.Error)
	}

	code, env = doRequest(t, srv, http.MethodPost, "/api/employees",
		`{"name":"A","role":"Dev","email":"nope"}`, "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %d", code)
	}
	if env.Error == "" {
		t.Fatal("expected a joined validation message")
	}
}

func TestMalformedIDs(t *testing.T) {
	srv := newTestServer(t)

	code, env := doRequest(t, srv, http.MethodGet, "/api/employees/abc", "", "")
	if code != http.StatusBadRequest || env.Error != "Invalid employee ID" {
		t.Fatalf("expected invalid employee id, got %d %s", code, env.Error)
	}

	code, env = doRequest(t, srv, http.MethodGet, "/api/tasks/abc", "", "")
	if code != http.StatusBadRequest || env.Error != "Invalid task ID" {
		t.Fatalf("expected invalid task id, got %d %s", code, env.Error)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t)

	code, env := doRequest(t, srv, http.MethodPost, "/api/auth/login",
		`{"email":"admin@company.com","password":"wrong"}`, "")
	if code != http.StatusUnauthorized || env.Error != "Invalid credentials" {
		t.Fatalf("expected 401 invalid credentials, got %d %s", code, env.Error)
	}
}

func TestTaskMutationsRequireToken(t *testing.T) {
	srv := newTestServer(t)
	employee := createEmployee(t, srv, `{"name":"Alice","role":"Dev","email":"alice@co.com"}`)

	body := `{"title":"Fix bug","employeeId":` + itoa(employee.ID) + `}`

	code, _ := doRequest(t, srv, http.MethodPost, "/api/tasks", body, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, _ = doRequest(t, srv, http.MethodPost, "/api/tasks", body, "garbage")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", code)
	}

	token := login(t, srv)
	code, env := doRequest(t, srv, http.MethodPost, "/api/tasks", body, token)
	if code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d %s", code, env.Error)
	}
}

func TestTaskCreateAliasAndDefaults(t *testing.T) {
	srv := newTestServer(t)
	employee := createEmployee(t, srv, `{"name":"Alice","role":"Dev","email":"alice@co.com"}`)
	token := login(t, srv)

	// The employee reference is accepted under the fallback field name too.
	code, env := doRequest(t, srv, http.MethodPost, "/api/tasks",
		`{"title":"Fix bug","employee":`+itoa(employee.ID)+`}`, token)
	if code != http.StatusCreated {
		t.Fatalf("create task failed: %d %s", code, env.Error)
	}

	var task models.Task
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.Status != models.StatusPending || task.Priority != models.PriorityMedium {
		t.Fatalf("expected defaults, got %s/%s", task.Status, task.Priority)
	}
	if task.Employee == nil || task.Employee.ID != employee.ID || task.Employee.Email != "alice@co.com" {
		t.Fatalf("expected nested employee summary, got %+v", task.Employee)
	}
}

func TestTaskCreateMissingEmployee(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	code, env := doRequest(t, srv, http.MethodPost, "/api/tasks",
		`{"title":"Fix bug","employeeId":9999}`, token)
	if code != http.StatusNotFound || env.Error != "Employee not found" {
		t.Fatalf("expected 404 employee not found, got %d %s", code, env.Error)
	}

	code, env = doRequest(t, srv, http.MethodPost, "/api/tasks", `{"title":"Fix bug"}`, token)
	if code != http.StatusBadRequest || env.Error != "Please provide title and employee ID" {
		t.Fatalf("expected missing-fields rejection, got %d %s", code, env.Error)
	}
}

func TestTaskStatusFilter(t *testing.T) {
	srv := newTestServer(t)
	employee := createEmployee(t, srv, `{"name":"Alice","role":"Dev","email":"alice@co.com"}`)
	token := login(t, srv)

	for _, body := range []string{
		`{"title":"Fix bug","employeeId":` + itoa(employee.ID) + `,"status":"Completed"}`,
		`{"title":"Write docs","employeeId":` + itoa(employee.ID) + `}`,
	} {
		if code, env := doRequest(t, srv, http.MethodPost, "/api/tasks", body, token); code != http.StatusCreated {
			t.Fatalf("create task failed: %d %s", code, env.Error)
		}
	}

	code, env := doRequest(t, srv, http.MethodGet, "/api/tasks?status=Completed", "", "")
	if code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("expected one completed task, got %d %+v", code, env)
	}

	var tasks []models.Task
	if err := json.Unmarshal(env.Data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if tasks[0].Status != models.StatusCompleted {
		t.Fatalf("filter leaked status %s", tasks[0].Status)
	}
	if tasks[0].Employee == nil || tasks[0].Employee.Name != "Alice" ||
		tasks[0].Employee.Role != "Dev" || tasks[0].Employee.Email != "alice@co.com" {
		t.Fatalf("expected nested employee summary, got %+v", tasks[0].Employee)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)
	alice := createEmployee(t, srv, `{"name":"Alice","role":"Dev","email":"alice@co.com"}`)
	bob := createEmployee(t, srv, `{"name":"Bob","role":"Dev","email":"bob@co.com"}`)
	token := login(t, srv)

	code, env := doRequest(t, srv, http.MethodPost, "/api/tasks",
		`{"title":"Fix bug","employeeId":`+itoa(alice.ID)+`}`, token)
	if code != http.StatusCreated {
		t.Fatalf("create task failed: %d %s", code, env.Error)
	}
	var task models.Task
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	// Reassigning through the alias field is verified and normalized.
	code, env = doRequest(t, srv, http.MethodPut, "/api/tasks/"+itoa(task.ID),
		`{"employee":`+itoa(bob.ID)+`,"status":"In Progress"}`, token)
	if code != http.StatusOK {
		t.Fatalf("update task failed: %d %s", code, env.Error)
	}
	var updated models.Task
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if updated.EmployeeID != bob.ID || updated.Status != models.StatusInProgress {
		t.Fatalf("update went wrong: %+v", updated)
	}

	code, env = doRequest(t, srv, http.MethodPut, "/api/tasks/"+itoa(task.ID),
		`{"employeeId":9999}`, token)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 on dangling reassignment, got %d %s", code, env.Error)
	}

	code, _ = doRequest(t, srv, http.MethodDelete, "/api/tasks/"+itoa(task.ID), "", token)
	if code != http.StatusOK {
		t.Fatalf("delete task failed: %d", code)
	}
	code, _ = doRequest(t, srv, http.MethodGet, "/api/tasks/"+itoa(task.ID), "", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	authManager := auth.NewManager("test-secret", "admin@company.com", "admin123", -time.Minute)
	srv := New(store, authManager, logger, "")

	token := login(t, srv)
	code, env := doRequest(t, srv, http.MethodPost, "/api/tasks",
		`{"title":"Fix bug","employeeId":1}`, token)
	if code != http.StatusUnauthorized || env.Error != "Token is invalid or expired" {
		t.Fatalf("expected expired token rejection, got %d %s", code, env.Error)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
