package core

import (
	"path/filepath"
	"strings"
)

// FileKind classifies an uploaded statement by extension.
type FileKind string

// FileStatus is the processing state of an uploaded statement.
type FileStatus string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindImage FileKind = "image"
	FileKindCSV   FileKind = "csv"
	FileKindOther FileKind = "その他"

	StatusProcessing      FileStatus = "処理中"
	StatusNeedsCorrection FileStatus = "要補正"
	StatusCorrected       FileStatus = "補正済"
	StatusApplied         FileStatus = "反映済"
)

// DetectFileKind derives the kind from the file name's extension.
func DetectFileKind(name string) FileKind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return FileKindPDF
	case "png", "jpg", "jpeg", "webp":
		return FileKindImage
	case "csv":
		return FileKindCSV
	}
	return FileKindOther
}

// FileStatuses lists the statuses in workflow order.
func FileStatuses() []FileStatus {
	return []FileStatus{StatusProcessing, StatusNeedsCorrection, StatusCorrected, StatusApplied}
}

// ImportResult summarizes one uploaded file.
type ImportResult struct {
	Name     string
	Kind     FileKind
	Status   FileStatus
	Imported int
	Errors   []string
}

// ResolveStatus derives the status once a file has been handled: files that
// could not be read as rows need correction, partially failing ones were
// applied with corrections, clean ones were applied.
func (r ImportResult) ResolveStatus() FileStatus {
	switch {
	case r.Kind != FileKindCSV:
		return StatusNeedsCorrection
	case r.Imported == 0 && len(r.Errors) > 0:
		return StatusNeedsCorrection
	case len(r.Errors) > 0:
		return StatusCorrected
	}
	return StatusApplied
}
