package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// GenerationJob is one user-requested edit attempt.
type GenerationJob struct {
	ID              string
	SessionID       string
	Status          JobStatus
	RequestedEdits  RequestedEdits
	ResultImageURLs []string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RequestedEdits is the immutable snapshot captured when a job is enqueued.
// The runner only ever reads this copy, never the session's live suggestions.
type RequestedEdits struct {
	Suggestions       []Suggestion `json:"suggestions"`
	Categories        []string     `json:"categories"`
	AdditionalChanges []string     `json:"additional_changes"`
	UserExtra         string       `json:"user_prompt_extra"`
	Model             string       `json:"model"`
	NumVariations     int          `json:"num_variations"`
}

// JobResult carries everything UpdateJobResult writes in one transaction.
type JobResult struct {
	JobID     string
	SessionID string
	URLs      []string
	Assets    []ImageAsset
}
