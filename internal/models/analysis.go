package models

import (
	"path/filepath"
	"strings"
)

type AnalysisKind string

const (
	KindPortfolio AnalysisKind = "portfolio"
	KindInterview AnalysisKind = "interview"
)

// UploadedAsset describes the file part of a multipart upload. The bytes stay
// with the request until they are materialized into a temp file.
type UploadedAsset struct {
	Filename string
	Size     int64
}

// Extension returns the lower-cased extension including the dot, or "" when
// the filename carries none.
func (a UploadedAsset) Extension() string {
	return strings.ToLower(filepath.Ext(a.Filename))
}

// Feedback is what the generator hands back. Degraded feedback carries a
// human-readable description of the failure in Text and the failure kind in Reason.
type Feedback struct {
	Text     string
	Degraded bool
	Reason   string
}
