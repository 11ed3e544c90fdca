package entity

// FileStatus is the lifecycle state of an uploaded source file.
type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// Task names an analytical operation delegated to the insight gateway.
type Task string

const (
	TaskAudit   Task = "audit"
	TaskSearch  Task = "search"
	TaskPredict Task = "predict"
)

// JobStatus is the lifecycle state of an insight job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Done reports whether the job reached a terminal state.
func (s JobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
