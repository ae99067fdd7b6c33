package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"langkah/internal/auth"
	"langkah/internal/core"
	"langkah/internal/notifier"
	"langkah/internal/storage"
)

func testOptions() Options {
	return Options{
		SyncedDelay: 5 * time.Millisecond,
		IdleDelay:   10 * time.Millisecond,
	}
}

func openStore(t *testing.T, path string) *storage.Store {
	t.Helper()
	s, err := storage.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newPair wires two coordinators to the same database through an
// in-process bus, standing in for two tabs of the same profile.
func newPair(t *testing.T, policy auth.Policy) (*Coordinator, *Coordinator) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "langkah.db")
	bus := notifier.NewBus()

	a := New(openStore(t, path), bus.Join(), policy, testOptions())
	b := New(openStore(t, path), bus.Join(), policy, testOptions())

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("start b: %v", err)
	}
	return a, b
}

func loginAdmin(t *testing.T, c *Coordinator) {
	t.Helper()
	if _, err := c.Login(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func mustAdd(t *testing.T, c *Coordinator, tx core.Transaction) {
	t.Helper()
	if err := c.AddTransaction(context.Background(), tx); err != nil {
		t.Fatalf("add transaction: %v", err)
	}
}

func sample(id string, cents int64, category string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: "catatan " + id,
		Date:        "2024-01-15",
		Type:        core.Expense,
	}
}

func waitStatus(t *testing.T, c *Coordinator, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", c.Status(), want)
}

func TestAddPropagatesToOtherInstance(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})

	mustAdd(t, a, sample("t1", 150000, "Makanan"))

	got := b.Transactions()
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("other instance state = %+v", got)
	}
}

func TestAddPrependsNewestFirst(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})

	mustAdd(t, a, sample("older", 100, "Makanan"))
	mustAdd(t, a, sample("newer", 200, "Makanan"))

	got := a.Transactions()
	if got[0].ID != "newer" || got[1].ID != "older" {
		t.Fatalf("expected newest first, got %v, %v", got[0].ID, got[1].ID)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	mustAdd(t, a, sample("t1", 100, "Makanan"))

	updated := sample("t1", 250, "Hiburan")
	if err := a.UpdateTransaction(context.Background(), updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := b.Transactions(); got[0].Amount.Cents != 250 || got[0].Category != "Hiburan" {
		t.Fatalf("update not propagated: %+v", got[0])
	}

	if err := a.DeleteTransaction(context.Background(), "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := b.Transactions(); len(got) != 0 {
		t.Fatalf("delete not propagated: %+v", got)
	}
}

func TestMutateMissingTransaction(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})
	if err := a.UpdateTransaction(context.Background(), sample("ghost", 100, "Makanan")); err != ErrNotFound {
		t.Fatalf("update: got %v, want ErrNotFound", err)
	}
	if err := a.DeleteTransaction(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("delete: got %v, want ErrNotFound", err)
	}
}

func TestRoleGating(t *testing.T) {
	a, _ := newPair(t, auth.AdminOnly{})
	ctx := context.Background()

	// Adding a record is open to everyone.
	mustAdd(t, a, sample("t1", 100, "Makanan"))

	if err := a.DeleteTransaction(ctx, "t1"); err != ErrPermission {
		t.Fatalf("delete without role: got %v, want ErrPermission", err)
	}
	if _, err := a.AddCategory(ctx, "Langganan", core.Expense); err != ErrPermission {
		t.Fatalf("add category without role: got %v, want ErrPermission", err)
	}
	if err := a.SetAppName(ctx, "X"); err != ErrPermission {
		t.Fatalf("set app name without role: got %v, want ErrPermission", err)
	}

	loginAdmin(t, a)
	if err := a.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("delete as admin: %v", err)
	}
}

func TestUserRoleCannotDelete(t *testing.T) {
	a, _ := newPair(t, auth.AdminOnly{})
	ctx := context.Background()
	if _, err := a.Login(ctx, "user", "user123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	mustAdd(t, a, sample("t1", 100, "Makanan"))
	if err := a.DeleteTransaction(ctx, "t1"); err != ErrPermission {
		t.Fatalf("got %v, want ErrPermission", err)
	}
}

func TestRenameCategoryCascades(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	ctx := context.Background()

	mustAdd(t, a, sample("t1", 100, "Makanan"))
	mustAdd(t, a, sample("t2", 200, "Makanan"))
	mustAdd(t, a, sample("t3", 300, "Hiburan"))

	// Seed category 4 is Makanan.
	if err := a.RenameCategory(ctx, "4", "Konsumsi"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	for _, c := range []*Coordinator{a, b} {
		renamed, untouched := 0, 0
		for _, tx := range c.Transactions() {
			switch tx.Category {
			case "Konsumsi":
				renamed++
			case "Hiburan":
				untouched++
			case "Makanan":
				t.Fatalf("transaction %s kept the old category name", tx.ID)
			}
		}
		if renamed != 2 || untouched != 1 {
			t.Fatalf("cascade renamed=%d untouched=%d", renamed, untouched)
		}
		for _, cat := range c.Categories() {
			if cat.ID == "4" && cat.Name != "Konsumsi" {
				t.Fatalf("category not renamed: %+v", cat)
			}
		}
	}
}

func TestSystemCategoryProtected(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})
	ctx := context.Background()

	if err := a.DeleteCategory(ctx, "4"); err != ErrSystemCategory {
		t.Fatalf("deleting seed category: got %v, want ErrSystemCategory", err)
	}

	cat, err := a.AddCategory(ctx, "Langganan", core.Expense)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if err := a.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("deleting custom category: %v", err)
	}
	for _, c := range a.Categories() {
		if c.ID == cat.ID {
			t.Fatalf("custom category still present")
		}
	}
}

func TestDuplicateCategoryRejected(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})
	ctx := context.Background()

	if _, err := a.AddCategory(ctx, "Makanan", core.Expense); err != ErrDuplicateCategory {
		t.Fatalf("got %v, want ErrDuplicateCategory", err)
	}
	// Same name under the other type is fine.
	if _, err := a.AddCategory(ctx, "Makanan", core.Income); err != nil {
		t.Fatalf("same name, different type: %v", err)
	}
}

func TestSettingsPropagation(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	ctx := context.Background()

	if err := a.SetAppName(ctx, "DOMPET CERDAS"); err != nil {
		t.Fatalf("set app name: %v", err)
	}
	if got := b.Settings().AppName; got != "DOMPET CERDAS" {
		t.Fatalf("app name not propagated: %q", got)
	}

	if err := a.SetBroadcast(ctx, "Tutup buku hari Jumat"); err != nil {
		t.Fatalf("set broadcast: %v", err)
	}
	if got := b.Settings().Broadcast; got != "Tutup buku hari Jumat" {
		t.Fatalf("broadcast not propagated: %q", got)
	}
}

func TestThemeIsLocalOnly(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	ctx := context.Background()

	if err := a.SetTheme(ctx, core.ThemeDark); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if got := a.Settings().Theme; got != core.ThemeDark {
		t.Fatalf("local theme = %q", got)
	}
	// Not broadcast: the other instance keeps its in-memory value until
	// its next reload.
	if got := b.Settings().Theme; got != core.ThemeLight {
		t.Fatalf("theme leaked to other instance: %q", got)
	}
}

func TestResetClearsTransactionsOnly(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	ctx := context.Background()

	mustAdd(t, a, sample("t1", 100, "Makanan"))
	if _, err := a.AddCategory(ctx, "Langganan", core.Expense); err != nil {
		t.Fatalf("add category: %v", err)
	}

	if err := a.ResetData(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := b.Transactions(); len(got) != 0 {
		t.Fatalf("transactions not cleared: %+v", got)
	}
	if got := b.Categories(); len(got) != 9 {
		t.Fatalf("categories must survive reset, got %d", len(got))
	}
}

func TestRestoreReplacesWholesale(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})
	ctx := context.Background()

	mustAdd(t, a, sample("old", 100, "Makanan"))

	restored := []core.Transaction{sample("fromBackup", 999, "Gaji")}
	if err := a.Restore(ctx, restored, nil, "ARSIP LAMA"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got := b.Transactions()
	if len(got) != 1 || got[0].ID != "fromBackup" {
		t.Fatalf("restore not a full replacement: %+v", got)
	}
	if b.Settings().AppName != "ARSIP LAMA" {
		t.Fatalf("app name not restored: %q", b.Settings().AppName)
	}
	if len(b.Categories()) == 0 {
		t.Fatalf("nil categories in backup must reseed defaults")
	}
}

func TestStatusLifecycle(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})

	if a.Status() != StatusIdle {
		t.Fatalf("initial status = %s", a.Status())
	}
	mustAdd(t, a, sample("t1", 100, "Makanan"))
	waitStatus(t, a, StatusSynced)
	waitStatus(t, a, StatusIdle)
}

func TestStatusErrorOnCorruptReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langkah.db")
	bus := notifier.NewBus()
	store := openStore(t, path)
	a := New(store, bus.Join(), auth.Permissive{}, testOptions())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := store.Save(context.Background(), storage.KeyTransactions, "{corrupt"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := a.reload(context.Background()); err != nil {
		t.Fatalf("reload must not fail on corrupt data: %v", err)
	}
	if a.Status() != StatusError {
		t.Fatalf("status = %s, want error", a.Status())
	}
	if len(a.Transactions()) != 0 {
		t.Fatalf("corrupt data must fall back to empty list")
	}

	// The next successful mutation recovers the indicator.
	mustAdd(t, a, sample("t1", 100, "Makanan"))
	waitStatus(t, a, StatusSynced)
}

func TestOnChangeFires(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})

	fired := 0
	b.OnChange(func() { fired++ })

	mustAdd(t, a, sample("t1", 100, "Makanan"))
	if fired == 0 {
		t.Fatalf("remote change did not fire OnChange")
	}
}

func TestValidationFailureDoesNotPersist(t *testing.T) {
	a, b := newPair(t, auth.Permissive{})

	bad := core.Transaction{ID: "x", Amount: core.Money{Cents: 0}, Category: "Makanan", Description: "x", Date: "2024-01-01", Type: core.Expense}
	if err := a.AddTransaction(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(a.Transactions()) != 0 || len(b.Transactions()) != 0 {
		t.Fatalf("invalid record reached the store")
	}
}

func TestSummaryAndFilteredViews(t *testing.T) {
	a, _ := newPair(t, auth.Permissive{})

	mustAdd(t, a, core.Transaction{ID: "i1", Amount: core.Money{Cents: 500000}, Category: "Gaji", Description: "gaji", Date: "2024-01-01", Type: core.Income})
	mustAdd(t, a, sample("e1", 150000, "Makanan"))

	s := a.Summary()
	if s.Balance.Cents != 350000 {
		t.Fatalf("balance = %d", s.Balance.Cents)
	}
	view := a.Filtered(core.Query{Text: "gaji"})
	if len(view) != 1 || view[0].ID != "i1" {
		t.Fatalf("filtered view = %+v", view)
	}
}
