package models

import "time"

// RunStatus is the lifecycle state of an update run.
type RunStatus string

const (
	RunIdle         RunStatus = "idle"
	RunRunning      RunStatus = "running"
	RunWaitingRetry RunStatus = "waiting_retry"
	RunCompleted    RunStatus = "completed"
	RunError        RunStatus = "error"
)

// Active reports whether a run in this state blocks a new start.
func (s RunStatus) Active() bool {
	return s == RunRunning || s == RunWaitingRetry
}

// RunRecord is the persisted outcome of one finished update run.
type RunRecord struct {
	ID         int       `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
}
