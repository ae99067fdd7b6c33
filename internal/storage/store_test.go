package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"langkah/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "langkah.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmptyStoreSeedsDefaults(t *testing.T) {
	s := openTestStore(t)
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(snap.Transactions))
	}
	if !reflect.DeepEqual(snap.Categories, core.DefaultCategories()) {
		t.Fatalf("expected default seed categories, got %+v", snap.Categories)
	}
	if snap.Settings.AppName != core.DefaultAppName {
		t.Fatalf("app name = %q", snap.Settings.AppName)
	}
	if snap.Settings.Theme != core.ThemeLight {
		t.Fatalf("theme = %q", snap.Settings.Theme)
	}
	if snap.Corrupt {
		t.Fatalf("empty store must not be reported corrupt")
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Prepend order: newest first, as the coordinator stores them.
	txs := []core.Transaction{
		{ID: "b", Amount: core.Money{Cents: 200}, Category: "Makanan", Description: "kedua", Date: "2024-01-02", Type: core.Expense, Timestamp: 2, SyncID: "s2"},
		{ID: "a", Amount: core.Money{Cents: 100}, Category: "Gaji", Description: "pertama", Date: "2024-01-01", Type: core.Income, CreatedBy: "admin", Timestamp: 1, SyncID: "s1"},
	}
	if err := s.SaveTransactions(ctx, txs); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(snap.Transactions, txs) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", snap.Transactions, txs)
	}
}

func TestCategoriesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cats := append(core.DefaultCategories(), core.Category{ID: "x", Name: "Langganan", Type: core.Expense, IsCustom: true})
	if err := s.SaveCategories(ctx, cats); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(snap.Categories, cats) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", snap.Categories, cats)
	}
}

func TestCorruptTransactionsFallsBackToEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyTransactions, "{not json"); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load must not fail on corrupt value: %v", err)
	}
	if len(snap.Transactions) != 0 {
		t.Fatalf("expected empty list, got %d", len(snap.Transactions))
	}
	if !snap.Corrupt {
		t.Fatalf("corrupt flag not set")
	}
}

func TestCorruptCategoriesReseeds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyCategories, "[[["); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(snap.Categories, core.DefaultCategories()) {
		t.Fatalf("expected reseeded defaults, got %+v", snap.Categories)
	}
	if !snap.Corrupt {
		t.Fatalf("corrupt flag not set")
	}
}

func TestScalarSettings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyAppName, "DOMPET CERDAS"); err != nil {
		t.Fatalf("save app name: %v", err)
	}
	if err := s.Save(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("save theme: %v", err)
	}
	if err := s.Save(ctx, KeyAuthRole, "admin"); err != nil {
		t.Fatalf("save role: %v", err)
	}
	if err := s.Save(ctx, KeyBroadcast, "Tutup buku akhir bulan"); err != nil {
		t.Fatalf("save broadcast: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Settings.AppName != "DOMPET CERDAS" {
		t.Fatalf("app name = %q", snap.Settings.AppName)
	}
	if snap.Settings.Theme != core.ThemeDark {
		t.Fatalf("theme = %q", snap.Settings.Theme)
	}
	if snap.Settings.Role != "admin" {
		t.Fatalf("role = %q", snap.Settings.Role)
	}
	if snap.Settings.Broadcast != "Tutup buku akhir bulan" {
		t.Fatalf("broadcast = %q", snap.Settings.Broadcast)
	}
}

func TestInvalidThemeFallsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, KeyTheme, "sepia"); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Settings.Theme != core.ThemeLight {
		t.Fatalf("expected light fallback, got %q", snap.Settings.Theme)
	}
}

func TestSaveCollectionsBothVisible(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txs := []core.Transaction{
		{ID: "t1", Amount: core.Money{Cents: 50}, Category: "Konsumsi", Description: "renamed", Date: "2024-03-01", Type: core.Expense},
	}
	cats := []core.Category{
		{ID: "4", Name: "Konsumsi", Type: core.Expense},
	}
	if err := s.SaveCollections(ctx, txs, cats); err != nil {
		t.Fatalf("save collections: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(snap.Transactions, txs) {
		t.Fatalf("transactions mismatch: %+v", snap.Transactions)
	}
	if !reflect.DeepEqual(snap.Categories, cats) {
		t.Fatalf("categories mismatch: %+v", snap.Categories)
	}
}

func TestDeleteRestoresAbsence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	custom := []core.Category{{ID: "z", Name: "Lainnya", Type: core.Expense, IsCustom: true}}
	if err := s.SaveCategories(ctx, custom); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, KeyCategories); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(snap.Categories, core.DefaultCategories()) {
		t.Fatalf("expected reseed after delete, got %+v", snap.Categories)
	}
}
