package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusReady,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Params captures per-job generation parameters supplied at enqueue time.
type Params struct {
	TargetLengthMinutes int `json:"target_length_minutes,omitempty"`
}

// Result holds the artifacts recorded when a job finishes successfully.
type Result struct {
	ArtifactURL   string
	ArtifactBytes int64
	Transcript    string
	SourcesJSON   string
}

// Job represents a podcast generation job persisted in SQLite.
type Job struct {
	ID            int64
	SubjectID     string
	Document      string
	TargetMinutes int
	Status        Status
	ProgressStage string
	ClaimedBy     string
	ClaimedAt     *time.Time
	ArtifactURL   string
	ArtifactBytes int64
	Transcript    string
	SourcesJSON   string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Ready      int `json:"ready"`
	Failed     int `json:"failed"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status is an end state.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// IsProcessing returns true when the job is claimed by a worker.
func (j Job) IsProcessing() bool {
	return j.Status == StatusProcessing
}
