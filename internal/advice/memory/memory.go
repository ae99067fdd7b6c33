// Package memory provides a canned adviser for tests and for running
// without a Gemini API key.
package memory

import (
	"context"
	"sync"

	"langkah/internal/advice"
	"langkah/internal/core"
)

type Adviser struct {
	mu    sync.Mutex
	calls int
	last  string
}

var _ advice.Adviser = (*Adviser)(nil)

func New() *Adviser { return &Adviser{} }

// Advise records the prompt it would have sent and returns a fixed,
// honest placeholder instead of fabricated analysis.
func (a *Adviser) Advise(_ context.Context, summary core.FinancialSummary, recent []core.Transaction) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.last = advice.BuildPrompt(summary, recent)
	return "Saran AI belum aktif. Tambahkan kunci API Gemini untuk mengaktifkan analisis keuangan.", nil
}

// Calls reports how many times Advise ran.
func (a *Adviser) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// LastPrompt returns the most recent prompt text.
func (a *Adviser) LastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
