package entity

import "time"

// FileMeta describes an upload before its content has been read.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
}

// FileRecord tracks one uploaded source in the registry.
type FileRecord struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	UploadedAt  time.Time
	RowCount    int
	Status      FileStatus
	Err         string
}
