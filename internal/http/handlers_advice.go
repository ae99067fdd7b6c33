package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"langkah/internal/advice"
	"langkah/internal/core"
)

type adviceResponse struct {
	Advice string `json:"advice"`
	Cached bool   `json:"cached,omitempty"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.adviser == nil {
		writeError(w, http.StatusNotImplemented, "advice is not configured")
		return
	}

	summary := s.coord.Summary()
	recent := s.coord.Transactions()

	key := adviceCacheKey(summary, recent)
	if cached, ok := s.adviceCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Advice cache hit")
		writeJSON(w, http.StatusOK, adviceResponse{Advice: cached, Cached: true})
		return
	}

	// A bounded timeout keeps a slow upstream from pinning the handler.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	text, err := s.adviser.Advise(ctx, summary, recent)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Advice request failed", "error", err)
		if errors.Is(err, advice.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "advice temporarily unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "advice failed")
		return
	}

	s.adviceCache.Set(key, text)
	writeJSON(w, http.StatusOK, adviceResponse{Advice: text})
}

// adviceCacheKey fingerprints the ledger head so repeated requests for
// an unchanged ledger reuse the cached response.
func adviceCacheKey(summary core.FinancialSummary, recent []core.Transaction) string {
	head := ""
	if len(recent) > 0 {
		head = recent[0].ID
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%d|%s", summary.Balance.Cents, summary.TotalExpense.Cents, len(recent), head)))
	return hex.EncodeToString(h[:8])
}
