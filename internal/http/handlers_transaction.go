package http

import (
	"net/http"
	"strings"

	"langkah/internal/core"
)

type transactionRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	CreatedBy   string `json:"createdBy,omitempty"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// listTransactions returns the ledger, newest first, optionally
// narrowed by q, start, and end query parameters.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := core.Query{
		Text:      strings.TrimSpace(r.URL.Query().Get("q")),
		StartDate: core.Date(strings.TrimSpace(r.URL.Query().Get("start"))),
		EndDate:   core.Date(strings.TrimSpace(r.URL.Query().Get("end"))),
	}
	txs := s.coord.Filtered(q)
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	tx := core.NewTransaction(
		core.Money{Cents: cents},
		sanitizeInput(req.Category),
		sanitizeInput(req.Description),
		core.Date(strings.TrimSpace(req.Date)),
		core.TransactionType(req.Type),
		sanitizeInput(req.CreatedBy),
	)
	if err := s.coord.AddTransaction(r.Context(), tx); err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction create failed", "error", err, "category", tx.Category)
		writeDomainError(w, err)
		return
	}
	s.adviceCache.Purge()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		s.updateTransaction(w, r, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, id)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	// Keep the original creation metadata where the client did not send it.
	var existing *core.Transaction
	for _, t := range s.coord.Transactions() {
		if t.ID == id {
			existing = &t
			break
		}
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}

	tx := *existing
	tx.Amount = core.Money{Cents: cents}
	tx.Category = sanitizeInput(req.Category)
	tx.Description = sanitizeInput(req.Description)
	tx.Date = core.Date(strings.TrimSpace(req.Date))
	tx.Type = core.TransactionType(req.Type)
	if req.CreatedBy != "" {
		tx.CreatedBy = sanitizeInput(req.CreatedBy)
	}

	if err := s.coord.UpdateTransaction(r.Context(), tx); err != nil {
		writeDomainError(w, err)
		return
	}
	s.adviceCache.Purge()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.coord.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.adviceCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.coord.Summary())
}
