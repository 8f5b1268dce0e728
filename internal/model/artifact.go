package model

import "time"

// Artifact describes an archive sitting in the artifact store.
// It is derived from store metadata and never persisted on its own.
type Artifact struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType names a step of the archive lifecycle.
type EventType string

const (
	EventArchiveCreated    EventType = "archive.created"
	EventArchiveDownloaded EventType = "archive.downloaded"
	EventArchiveReaped     EventType = "archive.reaped"
)

// Event is published whenever an archive is created or removed.
type Event struct {
	Type EventType `json:"type"`
	Name string    `json:"name"` // archive file name
	Size int64     `json:"size,omitempty"`
	At   time.Time `json:"at"`
}
