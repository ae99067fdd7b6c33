// Package export produces the two portable artifacts: a spreadsheet-
// friendly CSV of the ledger and a self-contained backup blob that the
// restore flow accepts back.
package export

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"langkah/internal/core"
)

var csvHeader = []string{"id", "date", "type", "category", "description", "amount", "created_by"}

// WriteCSV streams the transactions to w. Field quoting and escaping
// follow RFC 4180, so descriptions containing commas, quotes, or
// newlines survive a round trip through spreadsheet software.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.ID,
			string(tx.Date),
			string(tx.Type),
			tx.Category,
			tx.Description,
			tx.Amount.Decimal(),
			tx.CreatedBy,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Backup is the restore unit: the full collections plus the app name,
// stamped with when it was taken.
type Backup struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	AppName      string             `json:"appName"`
	ExportedAt   time.Time          `json:"exportedAt"`
}

// EncodeBackup serializes a backup as base64-wrapped JSON so it can be
// carried as an opaque string through clipboards and text files.
func EncodeBackup(txs []core.Transaction, cats []core.Category, appName string) (string, error) {
	b := Backup{
		Transactions: txs,
		Categories:   cats,
		AppName:      appName,
		ExportedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBackup reverses EncodeBackup. Both the base64 layer and the
// JSON layer must parse; there is no partial recovery of a damaged
// blob.
func DecodeBackup(blob string) (Backup, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return Backup{}, fmt.Errorf("decode backup: %w", err)
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("parse backup: %w", err)
	}
	return b, nil
}
