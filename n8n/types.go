package n8n

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an n8n identifier. Older n8n versions send numeric IDs and newer
// ones strings; both decode into ID.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("n8n: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the ID as text.
func (id ID) String() string { return string(id) }

// Tag labels workflows.
type Tag struct {
	ID        ID     `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Workflow is an n8n workflow definition.
type Workflow struct {
	ID          ID               `json:"id,omitempty"`
	Name        string           `json:"name"`
	Active      bool             `json:"active"`
	Nodes       []map[string]any `json:"nodes"`
	Connections map[string]any   `json:"connections"`
	Settings    map[string]any   `json:"settings,omitempty"`
	StaticData  any              `json:"staticData,omitempty"`
	Tags        []Tag            `json:"tags,omitempty"`
	CreatedAt   string           `json:"createdAt,omitempty"`
	UpdatedAt   string           `json:"updatedAt,omitempty"`
}

// WorkflowInput is the writable part of a workflow. n8n rejects read-only
// fields such as id or active on create and update.
type WorkflowInput struct {
	Name        string           `json:"name"`
	Nodes       []map[string]any `json:"nodes"`
	Connections map[string]any   `json:"connections"`
	Settings    map[string]any   `json:"settings"`
	StaticData  any              `json:"staticData,omitempty"`
}

func (w WorkflowInput) normalized() WorkflowInput {
	if w.Nodes == nil {
		w.Nodes = []map[string]any{}
	}
	if w.Connections == nil {
		w.Connections = map[string]any{}
	}
	if w.Settings == nil {
		w.Settings = map[string]any{}
	}
	return w
}

// Input returns the writable fields of w, for read-modify-write updates.
func (w Workflow) Input() WorkflowInput {
	return WorkflowInput{
		Name:        w.Name,
		Nodes:       w.Nodes,
		Connections: w.Connections,
		Settings:    w.Settings,
		StaticData:  w.StaticData,
	}
}

// Execution statuses accepted by ListExecutions.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWaiting = "waiting"
)

// Execution is one run of a workflow.
type Execution struct {
	ID         ID             `json:"id"`
	WorkflowID ID             `json:"workflowId"`
	Finished   bool           `json:"finished"`
	Mode       string         `json:"mode,omitempty"`
	Status     string         `json:"status,omitempty"`
	RetryOf    ID             `json:"retryOf,omitempty"`
	StartedAt  string         `json:"startedAt,omitempty"`
	StoppedAt  string         `json:"stoppedAt,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Page is one page of an n8n list endpoint.
type Page[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListWorkflowsOptions filter ListWorkflows. Zero values are omitted.
type ListWorkflowsOptions struct {
	Active *bool
	Tags   []string
	Name   string
	Limit  int
	Cursor string
}

// ListExecutionsOptions filter ListExecutions. Zero values are omitted.
type ListExecutionsOptions struct {
	WorkflowID  string
	Status      string
	IncludeData bool
	Limit       int
	Cursor      string
}

// ListTagsOptions page ListTags.
type ListTagsOptions struct {
	Limit  int
	Cursor string
}
