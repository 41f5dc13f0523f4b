package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// Number is a human-readable sequence number such as "42". The API sends it
// either as a JSON string or as a JSON number; it is always kept as a string.
type Number string

// UnmarshalJSON accepts "42", 42 and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(num.String())
	return nil
}

// String returns the number as text.
func (n Number) String() string { return string(n) }

// User represents an account
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Space is a sub-container within a workspace holding tasks.
type Space struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Number      Number `json:"number"`
	TaskCount   int    `json:"taskCount"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// WorkspaceCounts are server-computed aggregates.
type WorkspaceCounts struct {
	Spaces  int `json:"spaceCount"`
	Members int `json:"memberCount"`
}

// Workspace is the top-level collaboration container.
type Workspace struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Number       Number          `json:"number"`
	MemberEmails []string        `json:"memberEmails"`
	OwnerID      string          `json:"ownerId"`
	Spaces       []Space         `json:"spaces"`
	Counts       WorkspaceCounts `json:"counts"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy.
func (w Workspace) Clone() Workspace {
	w.MemberEmails = slices.Clone(w.MemberEmails)
	w.Spaces = slices.Clone(w.Spaces)
	return w
}

// SpaceByNumber returns the space with the given number.
func (w Workspace) SpaceByNumber(n Number) (Space, bool) {
	for _, s := range w.Spaces {
		if s.Number == n {
			return s, true
		}
	}
	return Space{}, false
}

// WorkspaceDetail extends Workspace with resolved owner and member records.
type WorkspaceDetail struct {
	Workspace
	Owner   *User  `json:"owner,omitempty"`
	Members []User `json:"members"`
}

// Clone returns a deep copy.
func (d WorkspaceDetail) Clone() WorkspaceDetail {
	d.Workspace = d.Workspace.Clone()
	if d.Owner != nil {
		owner := *d.Owner
		d.Owner = &owner
	}
	d.Members = slices.Clone(d.Members)
	return d
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work inside a space.
type Task struct {
	ID          string     `json:"id"`
	Number      Number     `json:"number,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	SpaceID     string     `json:"spaceId"`
	Assignee    *User      `json:"assignee,omitempty"`
	Reporter    *User      `json:"reporter,omitempty"`
	Creator     *User      `json:"creator,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskVersion is one entry of a task's history.
type TaskVersion struct {
	Version   int             `json:"version"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	ChangedBy *User           `json:"changedBy,omitempty"`
	ChangedAt time.Time       `json:"changedAt"`
}

// Invitation to join a workspace
type Invitation struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	WorkspaceID   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	InvitedBy     *User     `json:"invitedBy,omitempty"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// AssigneeCount is one bucket of the per-assignee breakdown.
type AssigneeCount struct {
	User  User `json:"user"`
	Count int  `json:"count"`
}

// TaskAnalytics summarises tasks of a workspace.
type TaskAnalytics struct {
	TotalTasks     int              `json:"totalTasks"`
	ByStatus       map[Status]int   `json:"byStatus"`
	ByPriority     map[Priority]int `json:"byPriority"`
	ByAssignee     []AssigneeCount  `json:"byAssignee"`
	OverdueTasks   int              `json:"overdueTasks"`
	CompletionRate float64          `json:"completionRate"`
}
