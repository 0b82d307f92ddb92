package web

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/vbonduro/lockerinv/internal/photostore"
)

const (
	maxAvatarSize = 5 << 20  // 5 MB
	maxPhotoSize  = 20 << 20 // 20 MB
	maxImportSize = 10 << 20 // 10 MB

	// multipartOverhead covers boundaries and headers around the file part.
	multipartOverhead = 1 << 20
)

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the stdlib sniffer has no
// WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readFormFile reads one multipart file field of at most limit bytes.
func (s *Server) readFormFile(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		return nil, nil, badRequest("Form upload tidak valid")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, badRequest("File %s wajib diunggah", field)
	}
	defer closeWithLog(file, "upload file", s.logger)

	if header.Size > limit {
		return nil, nil, &apiError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: "Ukuran file maksimal " + strconv.FormatInt(limit>>20, 10) + " MB",
		}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	return data, header, nil
}

// readUpload reads an image upload and sniffs its type from the content.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, error) {
	data, _, err := s.readFormFile(w, r, field, limit)
	if err != nil {
		return nil, "", err
	}
	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, "", badRequest("Format gambar tidak didukung")
	}
	return data, mimeType, nil
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	imageData, mimeType, err := s.readUpload(w, r, "image", maxPhotoSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	photo, items, err := s.svc.Lockers.UploadPhoto(r.Context(), userOf(r).ID, lockerID, imageData, mimeType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("locker photo analysed", "locker_id", lockerID, "items", len(items))
	writeJSON(w, http.StatusOK, map[string]any{
		"photo": toPhoto(photo),
		"items": orEmpty(items),
	})
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	photo, reader, err := s.svc.Lockers.GetPhoto(r.Context(), userOf(r).ID, lockerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("Cache-Control", "private, no-cache")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "locker_id", lockerID, "error", err)
	}
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Lockers.DeletePhoto(r.Context(), userOf(r).ID, lockerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFile serves QR images and profile pictures. Keys are random and
// unguessable, so any signed-in user may fetch them.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !photostore.ValidKey(key) {
		s.writeError(w, r, badRequest("Nama file tidak valid"))
		return
	}
	reader, mimeType, err := s.deps.Blobs.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeWithLog(reader, "blob reader", s.logger)

	if mimeType == "" {
		mimeType = photostore.MimeForKey(key)
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write blob failed", "key", key, "error", err)
	}
}

func closeWithLog(c io.Closer, what string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close failed", "what", what, "error", err)
	}
}
