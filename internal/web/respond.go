package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const maxJSONBody = 1 << 20 // 1 MB

type errorBody struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	ItemCount     *int   `json:"itemCount,omitempty"`
	TotalQuantity *int   `json:"totalQuantity,omitempty"`
}

// apiError is a handler-level failure with a fixed status and message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &apiError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, photostore.ErrNotFound)
}

func hasItemsMessage(e *domain.HasItemsError) string {
	what := "Loker"
	if e.Kind == "category" {
		what = "Kategori"
	}
	return fmt.Sprintf("%s masih berisi %d barang (total %d). Pindahkan atau hapus barangnya terlebih dahulu",
		what, e.ItemCount, e.TotalQuantity)
}

// writeError maps a service error to its HTTP status. Unexpected errors are
// logged and reported with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		apiErr   *apiError
		hasItems *domain.HasItemsError
		conflict *domain.ConflictError
		tooLarge *http.MaxBytesError
	)
	if verrs, ok := validation.AsErrors(err); ok {
		first := verrs.First()
		writeJSON(w, http.StatusBadRequest, errorBody{Error: first.Message, Field: first.Field})
		return
	}

	switch {
	case errors.As(err, &apiErr):
		writeJSON(w, apiErr.Status, errorBody{Error: apiErr.Message})
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Ukuran file terlalu besar"})
	case errors.As(err, &hasItems):
		count, total := hasItems.ItemCount, hasItems.TotalQuantity
		writeJSON(w, http.StatusConflict, errorBody{Error: hasItemsMessage(hasItems), ItemCount: &count, TotalQuantity: &total})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Message})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Data sudah ada"})
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Data tidak ditemukan"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Email atau password salah"})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Silakan login terlebih dahulu"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Anda tidak memiliki akses"})
	case errors.Is(err, domain.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "File bukan gambar yang valid"})
	case errors.Is(err, domain.ErrNoQRCode):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "QR code tidak terbaca pada gambar"})
	case errors.Is(err, domain.ErrVisionDisabled):
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "Analisis foto tidak diaktifkan"})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Terjadi kesalahan pada server"})
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("Body permintaan kosong")
		}
		return badRequest("Format JSON tidak valid")
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &apiError{Status: http.StatusBadRequest, Message: "ID tidak valid"}
	}
	return id, nil
}

// queryID parses an optional positive id query parameter; absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Parameter %s tidak valid", name)
	}
	return id, nil
}

// deleteOptions reads ?action=move&targetId=N or ?action=delete.
func deleteOptions(r *http.Request) (domain.DeleteOptions, error) {
	var opts domain.DeleteOptions
	switch action := domain.DeleteAction(r.URL.Query().Get("action")); action {
	case domain.DeleteActionNone, domain.DeleteActionDelete:
		opts.Action = action
	case domain.DeleteActionMove:
		opts.Action = action
		target, err := queryID(r, "targetId")
		if err != nil {
			return opts, err
		}
		if target == 0 {
			return opts, badRequest("Pilih tujuan pemindahan barang")
		}
		opts.TargetID = target
	default:
		return opts, badRequest("Aksi harus move atau delete")
	}
	return opts, nil
}
