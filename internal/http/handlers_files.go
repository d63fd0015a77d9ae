package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"assetboard/internal/core"
	"assetboard/internal/export"
	applog "assetboard/internal/log"
)

const (
	maxUploadBytes  = 10 << 20
	maxImportErrors = 20
)

type filesData struct {
	page
	Statuses []core.FileStatus
	Imports  []core.ImportResult
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	data := filesData{
		page:     newPage("ファイル", "/files"),
		Statuses: core.FileStatuses(),
		Imports:  s.importHistory(),
	}
	s.render(w, r, http.StatusOK, "files.html", data)
}

// handleImport reads an uploaded ledger CSV and stores each valid row.
// Other file kinds are recorded as needing correction.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentImport)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "Upload rejected", applog.FieldError, err)
		BadRequestError("ファイルを読み取れません").Write(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("ファイルを選択してください").Write(w)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	res := core.ImportResult{Name: name, Kind: core.DetectFileKind(name)}
	if res.Kind == core.FileKindCSV {
		s.importCSV(ctx, file, &res)
	} else {
		res.Errors = append(res.Errors, "自動取込はCSVのみ対応しています")
	}
	res.Status = res.ResolveStatus()
	s.recordImport(res)

	logger.InfoContext(ctx, "File imported",
		applog.FieldOperation, applog.OpImport,
		"file", name,
		"kind", res.Kind,
		"status", res.Status,
		applog.FieldCount, res.Imported,
		"errors", len(res.Errors))

	if isHTMX(r) {
		html, err := s.renderFragment("import_result", res)
		if err != nil {
			logger.ErrorContext(ctx, "Import result render failed", applog.FieldError, err)
		}
		b := NewHTMXResponse().BodyHTML(html)
		if res.Imported > 0 {
			b.TriggerSuccessNotification(fmt.Sprintf("%d件取り込みました", res.Imported))
		}
		b.Write(w)
		return
	}
	http.Redirect(w, r, "/files", http.StatusSeeOther)
}

func (s *Server) importCSV(ctx context.Context, src io.Reader, res *core.ImportResult) {
	rows, lineErrs, err := export.ReadCSV(src)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return
	}
	for _, le := range lineErrs {
		res.Errors = append(res.Errors, le.Error())
	}
	for _, row := range rows {
		cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		_, err := s.backend.CreateEntry(cctx, row)
		cancel()
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %s", row.Date.Format("2006-01-02"), row.Account, errorMessage(err)))
			continue
		}
		res.Imported++
	}
	if len(res.Errors) > maxImportErrors {
		more := len(res.Errors) - maxImportErrors
		res.Errors = append(res.Errors[:maxImportErrors], fmt.Sprintf("ほか%d件", more))
	}
}
