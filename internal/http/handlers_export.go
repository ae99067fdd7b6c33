package http

import (
	"fmt"
	"net/http"
	"time"

	"langkah/internal/export"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	filename := fmt.Sprintf("keuangan-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteCSV(w, s.coord.Transactions()); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

type backupResponse struct {
	Backup string `json:"backup"`
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	blob, err := export.EncodeBackup(s.coord.Transactions(), s.coord.Categories(), s.coord.Settings().AppName)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Backup encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusOK, backupResponse{Backup: blob})
}

type restoreRequest struct {
	Backup string `json:"backup"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req restoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := export.DecodeBackup(req.Backup)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid backup: "+err.Error())
		return
	}
	if err := s.coord.Restore(r.Context(), b.Transactions, b.Categories, b.AppName); err != nil {
		writeDomainError(w, err)
		return
	}
	s.adviceCache.Purge()
	writeJSON(w, http.StatusOK, map[string]int{
		"transactions": len(b.Transactions),
		"categories":   len(b.Categories),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := s.coord.ResetData(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.adviceCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}
