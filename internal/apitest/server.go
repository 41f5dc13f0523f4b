// Package apitest is an in-memory taskdesk API server for tests. It speaks
// the same routes and JSON shapes as the real backend and counts calls per
// route so tests can assert on fetch behavior.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskdesk/taskdesk/client"
)

// Route names, usable with Calls and FailNext.
const (
	RouteLogin            = "login"
	RouteRegister         = "register"
	RouteProfile          = "profile"
	RouteListWorkspaces   = "workspaces.list"
	RouteWorkspaceDetails = "workspace.details"
	RouteCreateWorkspace  = "workspace.create"
	RouteCreateSpace      = "space.create"
	RouteUpdateSpace      = "space.update"
	RouteDeleteSpace      = "space.delete"
	RouteListTasks        = "space.tasks"
	RouteTaskDetails      = "task.details"
	RouteCreateTask       = "task.create"
	RouteUpdateTask       = "task.update"
	RouteDeleteTask       = "task.delete"
	RouteTaskVersions     = "task.versions"
	RouteRevertTask       = "task.revert"
	RouteSendInvitation   = "invitation.send"
	RouteJoinInvitation   = "invitation.join"
	RouteAcceptInvitation = "invitation.accept"
	RouteTaskAnalytics    = "task.analytics"
)

type ctxKey struct{}

type account struct {
	user     client.User
	password string
}

type taskRecord struct {
	task     client.Task
	versions []client.TaskVersion
}

type failure struct {
	status  int
	message string
}

// Server is the fake backend. Create it with New.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account // by user id
	byEmail     map[string]string   // email -> user id
	tokens      map[string]string   // token -> user id
	workspaces  []*client.Workspace
	tasks       map[string]*taskRecord
	invitations map[string]*client.Invitation
	nextNumber  int

	calls    map[string]int
	failures map[string]failure
	hooks    map[string]func()
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:    map[string]*account{},
		byEmail:     map[string]string{},
		tokens:      map[string]string{},
		tasks:       map[string]*taskRecord{},
		invitations: map[string]*client.Invitation{},
		calls:       map[string]int{},
		failures:    map[string]failure{},
		hooks:       map[string]func(){},
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the server's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Calls reports how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next request to route fail with status and message.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// OnRequest runs fn before each request to route is handled, outside the
// server lock. Tests use it to block or observe requests.
func (s *Server) OnRequest(route string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = fn
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(name, email, password string) (client.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password)
}

func (s *Server) addUserLocked(name, email, password string) (client.User, string) {
	now := time.Now().UTC()
	u := client.User{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	s.accounts[u.ID] = &account{user: u, password: password}
	s.byEmail[strings.ToLower(email)] = u.ID
	token := "tok-" + uuid.NewString()
	s.tokens[token] = u.ID
	return u, token
}

// AddWorkspace creates a workspace owned by ownerID with the given space
// names and returns it.
func (s *Server) AddWorkspace(ownerID, name string, spaces ...string) client.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.createWorkspaceLocked(ownerID, name, "", nil)
	for _, sp := range spaces {
		s.createSpaceLocked(w, sp, "")
	}
	return w.Clone()
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(recoverer, s.track, s.authenticate)

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)
	r.HandleFunc("/api/user/profile", s.handleProfile).Methods(http.MethodGet).Name(RouteProfile)
	r.HandleFunc("/api/user/workspaces", s.handleListWorkspaces).Methods(http.MethodGet).Name(RouteListWorkspaces)
	r.HandleFunc("/api/workspace/details", s.handleWorkspaceDetails).Methods(http.MethodPost).Name(RouteWorkspaceDetails)
	r.HandleFunc("/api/workspace/create", s.handleCreateWorkspace).Methods(http.MethodPost).Name(RouteCreateWorkspace)
	r.HandleFunc("/api/space/create", s.handleCreateSpace).Methods(http.MethodPost).Name(RouteCreateSpace)
	r.HandleFunc("/api/space/update", s.handleUpdateSpace).Methods(http.MethodPut).Name(RouteUpdateSpace)
	r.HandleFunc("/api/space/delete/{id}", s.handleDeleteSpace).Methods(http.MethodDelete).Name(RouteDeleteSpace)
	r.HandleFunc("/api/space/tasks", s.handleListTasks).Methods(http.MethodPost).Name(RouteListTasks)
	r.HandleFunc("/api/task/details", s.handleTaskDetails).Methods(http.MethodPost).Name(RouteTaskDetails)
	r.HandleFunc("/api/task/create", s.handleCreateTask).Methods(http.MethodPost).Name(RouteCreateTask)
	r.HandleFunc("/api/task/update/{id}", s.handleUpdateTask).Methods(http.MethodPut).Name(RouteUpdateTask)
	r.HandleFunc("/api/task/delete/{id}", s.handleDeleteTask).Methods(http.MethodDelete).Name(RouteDeleteTask)
	r.HandleFunc("/api/task/versions", s.handleTaskVersions).Methods(http.MethodPost).Name(RouteTaskVersions)
	r.HandleFunc("/api/task/version/revert", s.handleRevertTask).Methods(http.MethodPost).Name(RouteRevertTask)
	r.HandleFunc("/api/invitation/send", s.handleSendInvitation).Methods(http.MethodPost).Name(RouteSendInvitation)
	r.HandleFunc("/api/invitation/join/{id}", s.handleJoinInvitation).Methods(http.MethodGet).Name(RouteJoinInvitation)
	r.HandleFunc("/api/invitation/accept", s.handleAcceptInvitation).Methods(http.MethodPost).Name(RouteAcceptInvitation)
	r.HandleFunc("/api/task/analytics", s.handleTaskAnalytics).Methods(http.MethodPost).Name(RouteTaskAnalytics)
	return r
}

// ------------------------- middleware -------------------------

func routeName(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		return cur.GetName()
	}
	return ""
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := routeName(r)
		s.mu.Lock()
		s.calls[name]++
		hook := s.hooks[name]
		f, fail := s.failures[name]
		delete(s.failures, name)
		s.mu.Unlock()

		if hook != nil {
			hook()
		}
		if fail {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/auth/") {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		uid, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func currentUserID(r *http.Request) string {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	return uid
}

// ------------------------- auth -------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[s.byEmail[strings.ToLower(in.Email)]]
	if !ok || acc.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := "tok-" + uuid.NewString()
	s.tokens[token] = acc.user.ID
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acc.user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Password string }
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[strings.ToLower(in.Email)]; exists {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	u, token := s.addUserLocked(in.Name, in.Email, in.Password)
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": u})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": s.accounts[currentUserID(r)].user})
}

// ------------------------- workspaces -------------------------

func (s *Server) visibleLocked(uid string, w *client.Workspace) bool {
	if w.OwnerID == uid {
		return true
	}
	acc := s.accounts[uid]
	return acc != nil && slices.Contains(w.MemberEmails, acc.user.Email)
}

func (s *Server) workspaceLocked(uid, id string) *client.Workspace {
	for _, w := range s.workspaces {
		if w.ID == id && s.visibleLocked(uid, w) {
			return w
		}
	}
	return nil
}

func (s *Server) createWorkspaceLocked(ownerID, name, description string, members []string) *client.Workspace {
	s.nextNumber++
	now := time.Now().UTC()
	emails := []string{}
	if acc := s.accounts[ownerID]; acc != nil {
		emails = append(emails, acc.user.Email)
	}
	for _, m := range members {
		if !slices.Contains(emails, m) {
			emails = append(emails, m)
		}
	}
	w := &client.Workspace{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Number:       client.Number(fmt.Sprint(s.nextNumber)),
		MemberEmails: emails,
		OwnerID:      ownerID,
		Spaces:       []client.Space{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.workspaces = append(s.workspaces, w)
	s.recountLocked(w)
	return w
}

func (s *Server) recountLocked(w *client.Workspace) {
	w.Counts = client.WorkspaceCounts{Spaces: len(w.Spaces), Members: len(w.MemberEmails)}
	for i := range w.Spaces {
		n := 0
		for _, rec := range s.tasks {
			if rec.task.SpaceID == w.Spaces[i].ID {
				n++
			}
		}
		w.Spaces[i].TaskCount = n
	}
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []client.Workspace{}
	for _, ws := range s.workspaces {
		if s.visibleLocked(uid, ws) {
			s.recountLocked(ws)
			out = append(out, ws.Clone())
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": out})
}

func (s *Server) handleWorkspaceDetails(w http.ResponseWriter, r *http.Request) {
	var in struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaceLocked(currentUserID(r), in.WorkspaceID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	s.recountLocked(ws)
	det := client.WorkspaceDetail{Workspace: ws.Clone(), Members: []client.User{}}
	if owner := s.accounts[ws.OwnerID]; owner != nil {
		u := owner.user
		det.Owner = &u
	}
	for _, email := range ws.MemberEmails {
		if acc := s.accounts[s.byEmail[strings.ToLower(email)]]; acc != nil {
			det.Members = append(det.Members, acc.user)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace": det})
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var in client.CreateWorkspaceRequest
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Workspace name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.createWorkspaceLocked(currentUserID(r), in.Name, in.Description, in.MemberEmails)
	writeJSON(w, http.StatusCreated, map[string]any{"workspace": ws.Clone()})
}

// ------------------------- spaces -------------------------

func (s *Server) createSpaceLocked(ws *client.Workspace, name, description string) client.Space {
	highest := 0
	for _, sp := range ws.Spaces {
		var n int
		_, _ = fmt.Sscan(sp.Number.String(), &n)
		if n > highest {
			highest = n
		}
	}
	sp := client.Space{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Number:      client.Number(fmt.Sprint(highest + 1)),
		WorkspaceID: ws.ID,
	}
	ws.Spaces = append(ws.Spaces, sp)
	s.recountLocked(ws)
	return sp
}

// spaceLocked finds a space visible to uid and its workspace.
func (s *Server) spaceLocked(uid, spaceID string) (*client.Workspace, int) {
	for _, ws := range s.workspaces {
		if !s.visibleLocked(uid, ws) {
			continue
		}
		for i := range ws.Spaces {
			if ws.Spaces[i].ID == spaceID {
				return ws, i
			}
		}
	}
	return nil, -1
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var in client.CreateSpaceRequest
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Space name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaceLocked(currentUserID(r), in.WorkspaceID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	sp := s.createSpaceLocked(ws, in.Name, in.Description)
	writeJSON(w, http.StatusCreated, map[string]any{"space": sp})
}

func (s *Server) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	var in client.UpdateSpaceRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, i := s.spaceLocked(currentUserID(r), in.ID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Space not found")
		return
	}
	ws.Spaces[i].Name = in.Name
	ws.Spaces[i].Description = in.Description
	writeJSON(w, http.StatusOK, map[string]any{"space": ws.Spaces[i]})
}

func (s *Server) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, i := s.spaceLocked(currentUserID(r), id)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Space not found")
		return
	}
	ws.Spaces = slices.Delete(ws.Spaces, i, i+1)
	for tid, rec := range s.tasks {
		if rec.task.SpaceID == id {
			delete(s.tasks, tid)
		}
	}
	s.recountLocked(ws)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Space deleted"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SpaceID string `json:"spaceId"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, _ := s.spaceLocked(currentUserID(r), in.SpaceID); ws == nil {
		writeError(w, http.StatusNotFound, "Space not found")
		return
	}
	out := []client.Task{}
	for _, rec := range s.tasks {
		if rec.task.SpaceID == in.SpaceID {
			out = append(out, rec.task)
		}
	}
	slices.SortFunc(out, func(a, b client.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

// ------------------------- tasks -------------------------

func (s *Server) taskLocked(uid, id string) *taskRecord {
	rec := s.tasks[id]
	if rec == nil {
		return nil
	}
	if ws, _ := s.spaceLocked(uid, rec.task.SpaceID); ws == nil {
		return nil
	}
	return rec
}

func (s *Server) userRefLocked(id string) *client.User {
	if acc := s.accounts[id]; acc != nil {
		u := acc.user
		return &u
	}
	return nil
}

func (s *Server) snapshotLocked(rec *taskRecord, uid string) {
	b, _ := json.Marshal(rec.task)
	rec.versions = append(rec.versions, client.TaskVersion{
		Version:   len(rec.versions) + 1,
		Snapshot:  b,
		ChangedBy: s.userRefLocked(uid),
		ChangedAt: time.Now().UTC(),
	})
}

func (s *Server) handleTaskDetails(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TaskID string `json:"taskId"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.taskLocked(currentUserID(r), in.TaskID)
	if rec == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": rec.task})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in client.CreateTaskRequest
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, i := s.spaceLocked(uid, in.SpaceID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Space not found")
		return
	}
	n := 0
	for _, rec := range s.tasks {
		if rec.task.SpaceID == in.SpaceID {
			n++
		}
	}
	now := time.Now().UTC()
	task := client.Task{
		ID:          uuid.NewString(),
		Number:      client.Number(fmt.Sprint(n + 1)),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		Tags:        append([]string{}, in.Tags...),
		DueDate:     in.DueDate,
		SpaceID:     in.SpaceID,
		Reporter:    s.userRefLocked(uid),
		Creator:     s.userRefLocked(uid),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.AssigneeID != "" {
		task.Assignee = s.userRefLocked(in.AssigneeID)
	}
	rec := &taskRecord{task: task}
	s.snapshotLocked(rec, uid)
	s.tasks[task.ID] = rec
	ws.Spaces[i].TaskCount++
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in client.UpdateTaskRequest
	if !decode(w, r, &in) {
		return
	}
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.taskLocked(uid, mux.Vars(r)["id"])
	if rec == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	t := &rec.task
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Tags != nil {
		t.Tags = append([]string{}, in.Tags...)
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.AssigneeID != nil {
		t.Assignee = s.userRefLocked(*in.AssigneeID)
	}
	t.UpdatedAt = time.Now().UTC()
	s.snapshotLocked(rec, uid)
	writeJSON(w, http.StatusOK, map[string]any{"task": rec.task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskLocked(currentUserID(r), id) == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	delete(s.tasks, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func (s *Server) handleTaskVersions(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TaskID string `json:"taskId"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.taskLocked(currentUserID(r), in.TaskID)
	if rec == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": rec.versions})
}

func (s *Server) handleRevertTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TaskID  string `json:"taskId"`
		Version int    `json:"version"`
	}
	if !decode(w, r, &in) {
		return
	}
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.taskLocked(uid, in.TaskID)
	if rec == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if in.Version < 1 || in.Version > len(rec.versions) {
		writeError(w, http.StatusNotFound, "Version not found")
		return
	}
	var restored client.Task
	if err := json.Unmarshal(rec.versions[in.Version-1].Snapshot, &restored); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt snapshot")
		return
	}
	restored.ID = rec.task.ID
	restored.UpdatedAt = time.Now().UTC()
	rec.task = restored
	s.snapshotLocked(rec, uid)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task reverted"})
}

func (s *Server) handleTaskAnalytics(w http.ResponseWriter, r *http.Request) {
	var in struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaceLocked(currentUserID(r), in.WorkspaceID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	a := client.TaskAnalytics{
		ByStatus:   map[client.Status]int{},
		ByPriority: map[client.Priority]int{},
		ByAssignee: []client.AssigneeCount{},
	}
	byAssignee := map[string]int{}
	var assignees []client.User
	now := time.Now()
	done := 0
	for _, rec := range s.tasks {
		t := rec.task
		if !slices.ContainsFunc(ws.Spaces, func(sp client.Space) bool { return sp.ID == t.SpaceID }) {
			continue
		}
		a.TotalTasks++
		a.ByStatus[t.Status]++
		a.ByPriority[t.Priority]++
		if t.Status == client.StatusDone {
			done++
		} else if t.DueDate != nil && t.DueDate.Before(now) {
			a.OverdueTasks++
		}
		if t.Assignee != nil {
			if byAssignee[t.Assignee.ID] == 0 {
				assignees = append(assignees, *t.Assignee)
			}
			byAssignee[t.Assignee.ID]++
		}
	}
	for _, u := range assignees {
		a.ByAssignee = append(a.ByAssignee, client.AssigneeCount{User: u, Count: byAssignee[u.ID]})
	}
	if a.TotalTasks > 0 {
		a.CompletionRate = float64(done) * 100 / float64(a.TotalTasks)
	}
	writeJSON(w, http.StatusOK, map[string]any{"analytics": a})
}

// ------------------------- invitations -------------------------

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var in client.SendInvitationRequest
	if !decode(w, r, &in) {
		return
	}
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaceLocked(uid, in.WorkspaceID)
	if ws == nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	if slices.Contains(ws.MemberEmails, in.Email) {
		writeError(w, http.StatusConflict, "User is already a member")
		return
	}
	inv := &client.Invitation{
		ID:            uuid.NewString(),
		Email:         in.Email,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		InvitedBy:     s.userRefLocked(uid),
		Status:        "pending",
		ExpiresAt:     time.Now().UTC().Add(7 * 24 * time.Hour),
	}
	s.invitations[inv.ID] = inv
	writeJSON(w, http.StatusOK, map[string]string{"message": "Invitation sent", "invitationId": inv.ID})
}

// Invitations returns a copy of every invitation sent so far.
func (s *Server) Invitations() []client.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]client.Invitation, 0, len(s.invitations))
	for _, inv := range s.invitations {
		out = append(out, *inv)
	}
	return out
}

func (s *Server) handleJoinInvitation(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invitations[mux.Vars(r)["id"]]
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	var ws *client.Workspace
	for _, candidate := range s.workspaces {
		if candidate.ID == inv.WorkspaceID {
			ws = candidate
		}
	}
	switch {
	case ws != nil && s.visibleLocked(uid, ws):
		writeJSON(w, http.StatusOK, map[string]any{"action": "already_member", "workspaceNumber": ws.Number})
	case inv.Status != "pending" || time.Now().After(inv.ExpiresAt):
		writeJSON(w, http.StatusOK, map[string]any{"action": "expired", "invitation": inv})
	case !strings.EqualFold(s.accounts[uid].user.Email, inv.Email):
		writeJSON(w, http.StatusOK, map[string]any{"action": "wrong_account", "invitation": inv})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"action": "accept", "invitation": inv})
	}
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		InvitationID string `json:"invitationId"`
	}
	if !decode(w, r, &in) {
		return
	}
	uid := currentUserID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invitations[in.InvitationID]
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	if inv.Status != "pending" || !strings.EqualFold(s.accounts[uid].user.Email, inv.Email) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	for _, ws := range s.workspaces {
		if ws.ID == inv.WorkspaceID {
			ws.MemberEmails = append(ws.MemberEmails, inv.Email)
			inv.Status = "accepted"
			s.recountLocked(ws)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "workspaceNumber": ws.Number})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Workspace not found")
}
