package advice

import (
	"encoding/json"
	"fmt"
	"strings"

	"langkah/internal/core"
)

// maxRecent caps how much of the ledger is sent out. Ten records is
// enough context for category-level tips.
const maxRecent = 10

// BuildPrompt renders the Indonesian advisory prompt from the current
// aggregates and the most recent records.
func BuildPrompt(summary core.FinancialSummary, recent []core.Transaction) string {
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}

	type row struct {
		Date     core.Date            `json:"date"`
		Category string               `json:"category"`
		Amount   string               `json:"amount"`
		Type     core.TransactionType `json:"type"`
		Desc     string               `json:"desc"`
	}
	rows := make([]row, 0, len(recent))
	for _, tx := range recent {
		rows = append(rows, row{
			Date:     tx.Date,
			Category: tx.Category,
			Amount:   tx.Amount.Decimal(),
			Type:     tx.Type,
			Desc:     tx.Description,
		})
	}
	detail, _ := json.MarshalIndent(rows, "", "  ")

	var b strings.Builder
	b.WriteString("Bertindaklah sebagai penasihat keuangan pribadi profesional.\n")
	b.WriteString("Analisis data transaksi berikut dan berikan ringkasan cerdas, saran penghematan, serta evaluasi kesehatan keuangan pengguna.\n\n")
	b.WriteString("Data Ringkasan:\n")
	fmt.Fprintf(&b, "- Total Pemasukan: Rp %s\n", FormatRupiah(summary.TotalIncome))
	fmt.Fprintf(&b, "- Total Pengeluaran: Rp %s\n", FormatRupiah(summary.TotalExpense))
	fmt.Fprintf(&b, "- Saldo Saat Ini: Rp %s\n\n", FormatRupiah(summary.Balance))
	fmt.Fprintf(&b, "Daftar %d Transaksi Terakhir:\n%s\n\n", len(rows), detail)
	b.WriteString("Berikan respons dalam Bahasa Indonesia yang ramah dan memotivasi. Sertakan:\n")
	b.WriteString("1. Evaluasi singkat pengeluaran terbesar.\n")
	b.WriteString("2. Satu atau dua tips penghematan yang spesifik berdasarkan kategori pengeluaran mereka.\n")
	b.WriteString("3. Kalimat motivasi keuangan.\n\n")
	b.WriteString("Format jawaban dalam Markdown yang rapi.\n")
	return b.String()
}

// FormatRupiah renders a money value with Indonesian digit grouping,
// e.g. 1234550 cents as "12.345,50" and whole amounts without decimals.
func FormatRupiah(m core.Money) string {
	dec := m.Decimal()
	neg := strings.HasPrefix(dec, "-")
	dec = strings.TrimPrefix(dec, "-")

	whole, frac, hasFrac := strings.Cut(dec, ".")
	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	out := strings.Join(groups, ".")
	if hasFrac {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
