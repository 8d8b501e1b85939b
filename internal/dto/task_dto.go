package dto

import "time"

type CreateTaskRequest struct {
	Name string `json:"name"`
}

// UpdateNodeRequest is a partial patch: nil fields are left untouched.
// IsCompleted and CompletedAt travel together; completing without an
// explicit timestamp defaults to the server clock.
type UpdateNodeRequest struct {
	NodeID      string     `json:"node_id"`
	Description *string    `json:"description,omitempty"`
	Note        *string    `json:"note,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type InsertNodeRequest struct {
	TaskID      string `json:"task_id"`
	AfterNodeID string `json:"after_node_id"`
}

type CompleteTaskRequest struct {
	TaskID string `json:"task_id"`
}

type NodeResponse struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Note        *string    `json:"note,omitempty"`
	Order       int        `json:"order"`
}

type TaskResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Nodes     []NodeResponse `json:"nodes"`
	CreatedAt time.Time      `json:"created_at"`
}
