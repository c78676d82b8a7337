package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique news document ID with the "news_" prefix
func NewDocumentID() string {
	return "news_" + uuid.New().String()
}

// NewSignalID generates a unique trading signal ID with the "sig_" prefix
func NewSignalID() string {
	return "sig_" + uuid.New().String()
}

// NewSnapshotID generates a unique sentiment snapshot ID
func NewSnapshotID() string {
	return "snap_" + uuid.New().String()
}
