package threadrun

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Config captures initialization options for Client.
// Field precedence: explicit Config values override environment variables,
// which override library defaults.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Stream event discriminators recognized by the aggregator. Unknown values
// are tolerated: they stay in the event log but carry no classification.
const (
	EventResponseStarted   = "response.started"
	EventItemCompleted     = "response.item.completed"
	EventResponseCompleted = "response.completed"
	EventStreamCompleted   = "stream.completed"
	EventStreamError       = "stream.error"
)

// StreamEvent is one decoded increment of agent execution progress. Which
// fields are populated depends on Type.
type StreamEvent struct {
	Type    string      `json:"type"`
	Item    *RunItem    `json:"item,omitempty"`
	Content string      `json:"content,omitempty"`
	RunID   string      `json:"runId,omitempty"`
	Status  string      `json:"status,omitempty"`
	Usage   *TokenUsage `json:"usage,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RunItem is a structured output item carried by response.item.completed.
type RunItem struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	Path      string          `json:"path,omitempty"`
}

// TokenUsage reports token counts for a completed run.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// RunSummary is the run metadata captured from a stream.completed event.
type RunSummary struct {
	ID     string      `json:"runId"`
	Status string      `json:"status"`
	Usage  *TokenUsage `json:"usage,omitempty"`
}

// RunResult is the aggregated outcome of one streamed message. Events holds
// every event observed, in wire order, including unrecognized types.
type RunResult struct {
	Content string
	Run     *RunSummary
	Events  []StreamEvent
}

// MessageOptions customize a single SendMessage/StreamMessage call.
//
// OnEvent, when set, is invoked synchronously for each event before the next
// frame is pulled off the wire; a slow handler throttles consumption. A
// non-nil error return aborts the stream and is propagated to the caller.
type MessageOptions struct {
	Timeout time.Duration
	OnEvent func(StreamEvent) error
}

// RunOptions customize a Client.Run invocation.
type RunOptions struct {
	EnvironmentID string
	ThreadID      string
	Timeout       time.Duration
	OnEvent       func(StreamEvent) error
}

// RunOutput is what Client.Run returns. ThreadID is always set and can be
// fed back via RunOptions.ThreadID for multi-turn continuation.
type RunOutput struct {
	Content  string
	ThreadID string
	Run      *RunSummary
}

// Environment is a server-side execution context.
type Environment struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	IsDefault      bool      `json:"isDefault"`
	InternetAccess bool      `json:"internetAccess"`
	Status         string    `json:"status,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// CreateEnvironmentRequest is the payload for Environments.Create.
type CreateEnvironmentRequest struct {
	Name           string `json:"name"`
	IsDefault      bool   `json:"isDefault,omitempty"`
	InternetAccess bool   `json:"internetAccess,omitempty"`
}

// EnvironmentStatus is one update from an environment watch feed.
type EnvironmentStatus struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	At     time.Time `json:"at,omitempty"`
}

// Thread is a server-side conversation context. The client holds no
// authoritative thread state; the server is the source of truth.
type Thread struct {
	ID            string    `json:"id"`
	EnvironmentID string    `json:"environmentId"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// Agent describes a deployable agent definition.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// CreateAgentRequest is the payload for Agents.Create.
type CreateAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Model       string `json:"model,omitempty"`
}

// FileInfo describes a file inside an environment workspace.
type FileInfo struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`
}

// GitStatus reports the state of an environment's working tree.
type GitStatus struct {
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
	Ahead  int    `json:"ahead"`
	Behind int    `json:"behind"`
}

// CloneRequest is the payload for Git.Clone.
type CloneRequest struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
}

// Schedule runs a task on a cron expression, server-side.
type Schedule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Cron      string     `json:"cron"`
	Task      string     `json:"task"`
	Enabled   bool       `json:"enabled"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
}

// CreateScheduleRequest is the payload for Schedules.Create.
type CreateScheduleRequest struct {
	Name    string `json:"name"`
	Cron    string `json:"cron"`
	Task    string `json:"task"`
	Enabled bool   `json:"enabled"`
}

// Trigger fires a task when a named server-side event occurs.
type Trigger struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Event string `json:"event"`
	Task  string `json:"task"`
}

// Orchestration is a multi-agent workflow managed by the service.
type Orchestration struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UsageReport summarizes billable activity for the current period.
type UsageReport struct {
	PeriodStart  time.Time `json:"periodStart"`
	PeriodEnd    time.Time `json:"periodEnd"`
	InputTokens  int64     `json:"inputTokens"`
	OutputTokens int64     `json:"outputTokens"`
	Runs         int64     `json:"runs"`
}

// Credits is the account's remaining balance.
type Credits struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// apiErrorBody is the structured error shape returned by the service.
type apiErrorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}
