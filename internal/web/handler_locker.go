package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/lockerinv/internal/service"
)

func (s *Server) handleListLockers(w http.ResponseWriter, r *http.Request) {
	lockers, err := s.svc.Lockers.ListLockers(r.Context(), userOf(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLockers(lockers))
}

func (s *Server) handleGetLocker(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	locker, items, err := s.svc.Lockers.GetLockerWithItems(r.Context(), userOf(r).ID, lockerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locker": toLocker(locker),
		"items":  orEmpty(items),
	})
}

func (s *Server) handleLockerByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		s.writeError(w, r, badRequest("Kode loker wajib diisi"))
		return
	}
	locker, err := s.svc.Lockers.GetLockerByCode(r.Context(), userOf(r).ID, code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocker(locker))
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.svc.Lockers.GenerateCode(r.Context(), userOf(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleCreateLocker(w http.ResponseWriter, r *http.Request) {
	var in service.LockerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	locker, err := s.svc.Lockers.CreateLocker(r.Context(), userOf(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLocker(locker))
}

func (s *Server) handleUpdateLocker(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.LockerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	locker, err := s.svc.Lockers.UpdateLocker(r.Context(), userOf(r).ID, lockerID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocker(locker))
}

func (s *Server) handleDeleteLocker(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := deleteOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Lockers.DeleteLocker(r.Context(), userOf(r).ID, lockerID, opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLockerQR(w http.ResponseWriter, r *http.Request) {
	lockerID, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := s.svc.Lockers.QRImage(r.Context(), userOf(r).ID, lockerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, no-cache")
	if _, err := w.Write(png); err != nil {
		s.logger.Error("write qr image failed", "locker_id", lockerID, "error", err)
	}
}

func (s *Server) handleScanLocker(w http.ResponseWriter, r *http.Request) {
	imageData, _, err := s.readUpload(w, r, "image", maxPhotoSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	locker, err := s.svc.Lockers.ScanLocker(r.Context(), userOf(r).ID, imageData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocker(locker))
}
