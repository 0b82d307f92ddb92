package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	include, err := service.ParseInclude(q.Get("include"), q.Has("include"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = service.FormatJSON
	}

	snap, err := s.svc.Data.Export(r.Context(), userOf(r).ID, include)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := snap.Encode(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := "application/json; charset=utf-8"
	if format == service.FormatYAML {
		contentType = "application/yaml; charset=utf-8"
	}
	filename := fmt.Sprintf("lockerinv-export-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("write export failed", "error", err)
	}
}

// snapshotFormat derives the document format from a filename or content
// type. Empty means "detect from content".
func snapshotFormat(filename, contentType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return service.FormatJSON
	case ".yaml", ".yml":
		return service.FormatYAML
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json":
		return service.FormatJSON
	case "application/yaml", "application/x-yaml", "text/yaml":
		return service.FormatYAML
	}
	return ""
}

// readSnapshot accepts the document as a multipart "file" field or as the
// raw request body.
func (s *Server) readSnapshot(w http.ResponseWriter, r *http.Request) (*service.Snapshot, error) {
	var (
		data   []byte
		format string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		fileData, header, err := s.readFormFile(w, r, "file", maxImportSize)
		if err != nil {
			return nil, err
		}
		data = fileData
		format = snapshotFormat(header.Filename, header.Header.Get("Content-Type"))
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		data = body
		format = snapshotFormat("", r.Header.Get("Content-Type"))
	}
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		format = f
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, badRequest("File import kosong")
	}
	return service.ParseSnapshot(data, format)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := service.ParseImportMode(q.Get("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	include, err := service.ParseInclude(q.Get("include"), q.Has("include"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.readSnapshot(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user := userOf(r)
	summary, err := s.svc.Data.Import(r.Context(), user.ID, snap, mode, include)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("data imported", "user_id", user.ID, "mode", mode,
		"items_created", summary.ItemsCreated, "items_merged", summary.ItemsMerged)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := userOf(r)
	summary, err := s.svc.Data.Reset(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("data reset", "user_id", user.ID, "items", summary.Items, "lockers", summary.Lockers)
	writeJSON(w, http.StatusOK, summary)
}
