// Package sync glues the store and the notifier together: every local
// mutation is validated, applied to in-memory state, persisted, and then
// announced to other instances; every received announcement triggers a
// wholesale reload. There is no merge of concurrent edits and no
// causality tracking: the last save to physically complete wins per key.
// That lost-update window is a documented property of the design, not an
// oversight to paper over here.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"langkah/internal/auth"
	"langkah/internal/core"
	"langkah/internal/notifier"
	"langkah/internal/storage"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrPermission        = errors.New("operation not permitted for role")
	ErrSystemCategory    = errors.New("system categories cannot be deleted")
	ErrDuplicateCategory = errors.New("category name already exists for this type")
)

// Options tune the status-indicator pacing. Tests shrink the delays.
type Options struct {
	SyncedDelay time.Duration // syncing -> synced
	IdleDelay   time.Duration // synced -> idle
}

func DefaultOptions() Options {
	return Options{
		SyncedDelay: 600 * time.Millisecond,
		IdleDelay:   2 * time.Second,
	}
}

// Coordinator is constructed explicitly and passed down; there are no
// package-level singletons. Each running instance owns exactly one.
type Coordinator struct {
	store    *storage.Store
	notifier notifier.Notifier
	policy   auth.Policy
	status   *statusMachine

	mu   stdsync.Mutex
	snap storage.Snapshot
	role auth.Role

	onChange func()
}

func New(store *storage.Store, n notifier.Notifier, policy auth.Policy, opts Options) *Coordinator {
	if opts.SyncedDelay <= 0 {
		opts = DefaultOptions()
	}
	return &Coordinator{
		store:    store,
		notifier: n,
		policy:   policy,
		status:   newStatusMachine(opts.SyncedDelay, opts.IdleDelay),
		snap: storage.Snapshot{
			Categories: core.DefaultCategories(),
			Settings:   core.DefaultSettings(),
		},
	}
}

// Start loads persisted state and subscribes to remote change events.
func (c *Coordinator) Start(ctx context.Context) error {
	snap, err := c.store.Load(ctx)
	if err != nil {
		c.status.fail()
		return fmt.Errorf("initial load: %w", err)
	}

	c.mu.Lock()
	c.snap = snap
	c.role = auth.Role(snap.Settings.Role)
	c.mu.Unlock()

	if snap.Corrupt {
		c.status.fail()
	}

	c.notifier.Subscribe(c.handleEvent)

	slog.InfoContext(ctx, "Sync coordinator started",
		"transactions", len(snap.Transactions),
		"categories", len(snap.Categories))
	return nil
}

// OnChange registers a callback invoked after any state replacement,
// local or remote. The UI uses it to re-render.
func (c *Coordinator) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// OnStatus registers a listener for indicator transitions.
func (c *Coordinator) OnStatus(fn func(Status)) {
	c.status.onChange(fn)
}

func (c *Coordinator) Status() Status { return c.status.current() }

// handleEvent is the reload path: any event from another instance
// replaces all in-memory collections and settings wholesale. A local
// edit being composed while this lands is not merged or protected.
func (c *Coordinator) handleEvent(ctx context.Context, ev notifier.Event) error {
	slog.DebugContext(ctx, "Change event received", "kind", ev.Kind, "sender", ev.SenderID)
	return c.reload(ctx)
}

func (c *Coordinator) reload(ctx context.Context) error {
	c.status.begin()

	snap, err := c.store.Load(ctx)
	if err != nil {
		c.status.fail()
		return fmt.Errorf("reload: %w", err)
	}

	c.mu.Lock()
	// The persisted role is not replaced by remote reloads; each instance
	// keeps its own session.
	snap.Settings.Role = string(c.role)
	c.snap = snap
	notifyFn := c.onChange
	c.mu.Unlock()

	if snap.Corrupt {
		c.status.fail()
	} else {
		c.status.settle()
	}
	if notifyFn != nil {
		notifyFn()
	}
	return nil
}

// --- accessors -----------------------------------------------------------

// Transactions returns a copy of the current list, newest first.
func (c *Coordinator) Transactions() []core.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Transaction, len(c.snap.Transactions))
	copy(out, c.snap.Transactions)
	return out
}

func (c *Coordinator) Categories() []core.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Category, len(c.snap.Categories))
	copy(out, c.snap.Categories)
	return out
}

func (c *Coordinator) Settings() core.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Settings
}

func (c *Coordinator) Role() auth.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Summary recomputes the derived totals from the current list.
func (c *Coordinator) Summary() core.FinancialSummary {
	return core.Summarize(c.Transactions())
}

// Filtered returns the display view for a search/date query.
func (c *Coordinator) Filtered(q core.Query) []core.Transaction {
	return core.Filter(c.Transactions(), q)
}

// --- session -------------------------------------------------------------

// Login establishes the session role and persists it. The credential
// check itself is the placeholder in the auth package.
func (c *Coordinator) Login(ctx context.Context, username, password string) (auth.Role, error) {
	role, err := auth.Login(username, password)
	if err != nil {
		return auth.RoleNone, err
	}
	c.mu.Lock()
	c.role = role
	c.snap.Settings.Role = string(role)
	c.mu.Unlock()

	if err := c.store.Save(ctx, storage.KeyAuthRole, string(role)); err != nil {
		slog.ErrorContext(ctx, "Failed to persist session role", "error", err)
	}
	return role, nil
}

func (c *Coordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	c.role = auth.RoleNone
	c.snap.Settings.Role = ""
	c.mu.Unlock()
	if err := c.store.Delete(ctx, storage.KeyAuthRole); err != nil {
		slog.ErrorContext(ctx, "Failed to clear session role", "error", err)
	}
}

// --- transaction mutations ----------------------------------------------

// AddTransaction validates, prepends (newest first), persists, and
// announces. Anyone may add; only edits and deletes are role-gated.
func (c *Coordinator) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	c.status.begin()

	c.mu.Lock()
	c.snap.Transactions = append([]core.Transaction{tx}, c.snap.Transactions...)
	txs := c.snap.Transactions
	c.mu.Unlock()

	return c.persistTransactions(ctx, txs)
}

func (c *Coordinator) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if !c.policy.CanEdit(c.Role()) {
		return ErrPermission
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	c.status.begin()

	c.mu.Lock()
	found := false
	for i, t := range c.snap.Transactions {
		if t.ID == tx.ID {
			c.snap.Transactions[i] = tx
			found = true
			break
		}
	}
	txs := c.snap.Transactions
	c.mu.Unlock()

	if !found {
		c.status.fail()
		return ErrNotFound
	}
	return c.persistTransactions(ctx, txs)
}

func (c *Coordinator) DeleteTransaction(ctx context.Context, id string) error {
	if !c.policy.CanDelete(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	c.mu.Lock()
	kept := c.snap.Transactions[:0:0]
	found := false
	for _, t := range c.snap.Transactions {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	c.snap.Transactions = kept
	c.mu.Unlock()

	if !found {
		c.status.fail()
		return ErrNotFound
	}
	return c.persistTransactions(ctx, kept)
}

func (c *Coordinator) persistTransactions(ctx context.Context, txs []core.Transaction) error {
	if err := c.store.SaveTransactions(ctx, txs); err != nil {
		c.status.fail()
		return err
	}
	c.publish(ctx, notifier.KindTransactions)
	c.status.settle()
	return nil
}

// --- category mutations --------------------------------------------------

func (c *Coordinator) AddCategory(ctx context.Context, name string, typ core.TransactionType) (core.Category, error) {
	if !c.policy.CanEdit(c.Role()) {
		return core.Category{}, ErrPermission
	}
	cat := core.NewCategory(name, typ)
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	c.status.begin()

	c.mu.Lock()
	for _, existing := range c.snap.Categories {
		if existing.Type == typ && existing.Name == name {
			c.mu.Unlock()
			c.status.fail()
			return core.Category{}, ErrDuplicateCategory
		}
	}
	c.snap.Categories = append(c.snap.Categories, cat)
	cats := c.snap.Categories
	c.mu.Unlock()

	if err := c.store.SaveCategories(ctx, cats); err != nil {
		c.status.fail()
		return core.Category{}, err
	}
	c.publish(ctx, notifier.KindCategories)
	c.status.settle()
	return cat, nil
}

// RenameCategory renames the category and cascades the new name onto
// every transaction carrying the old one. Both collections are persisted
// in a single store transaction before anything is announced.
func (c *Coordinator) RenameCategory(ctx context.Context, id, newName string) error {
	if !c.policy.CanEdit(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	c.mu.Lock()
	var target *core.Category
	for i := range c.snap.Categories {
		if c.snap.Categories[i].ID == id {
			target = &c.snap.Categories[i]
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		c.status.fail()
		return ErrNotFound
	}
	for _, existing := range c.snap.Categories {
		if existing.ID != id && existing.Type == target.Type && existing.Name == newName {
			c.mu.Unlock()
			c.status.fail()
			return ErrDuplicateCategory
		}
	}

	oldName := target.Name
	target.Name = newName
	for i := range c.snap.Transactions {
		if c.snap.Transactions[i].Category == oldName {
			c.snap.Transactions[i].Category = newName
		}
	}
	txs := c.snap.Transactions
	cats := c.snap.Categories
	c.mu.Unlock()

	if err := c.store.SaveCollections(ctx, txs, cats); err != nil {
		c.status.fail()
		return err
	}
	c.publish(ctx, notifier.KindCategories)
	c.publish(ctx, notifier.KindTransactions)
	c.status.settle()
	return nil
}

// DeleteCategory removes an admin-added category. System categories
// (IsCustom false) are protected and the call is rejected.
func (c *Coordinator) DeleteCategory(ctx context.Context, id string) error {
	if !c.policy.CanDelete(c.Role()) {
		return ErrPermission
	}

	c.mu.Lock()
	idx := -1
	for i, cat := range c.snap.Categories {
		if cat.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return ErrNotFound
	}
	if !c.snap.Categories[idx].IsCustom {
		c.mu.Unlock()
		return ErrSystemCategory
	}
	c.status.begin()
	c.snap.Categories = append(c.snap.Categories[:idx], c.snap.Categories[idx+1:]...)
	cats := c.snap.Categories
	c.mu.Unlock()

	if err := c.store.SaveCategories(ctx, cats); err != nil {
		c.status.fail()
		return err
	}
	c.publish(ctx, notifier.KindCategories)
	c.status.settle()
	return nil
}

// --- settings mutations --------------------------------------------------

func (c *Coordinator) SetAppName(ctx context.Context, name string) error {
	if !c.policy.CanEdit(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	c.mu.Lock()
	c.snap.Settings.AppName = name
	c.mu.Unlock()

	if err := c.store.Save(ctx, storage.KeyAppName, name); err != nil {
		c.status.fail()
		return err
	}
	c.publish(ctx, notifier.KindAppName)
	c.status.settle()
	return nil
}

func (c *Coordinator) SetBroadcast(ctx context.Context, message string) error {
	if !c.policy.CanEdit(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	c.mu.Lock()
	c.snap.Settings.Broadcast = message
	c.mu.Unlock()

	if err := c.store.Save(ctx, storage.KeyBroadcast, message); err != nil {
		c.status.fail()
		return err
	}
	c.publish(ctx, notifier.KindBroadcast)
	c.status.settle()
	return nil
}

// SetTheme persists but does not broadcast: the theme is per-instance.
func (c *Coordinator) SetTheme(ctx context.Context, theme core.Theme) error {
	if theme != core.ThemeLight && theme != core.ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	c.mu.Lock()
	c.snap.Settings.Theme = theme
	c.mu.Unlock()
	return c.store.Save(ctx, storage.KeyTheme, string(theme))
}

// --- data lifecycle ------------------------------------------------------

// ResetData clears all transactions. Categories and settings survive.
func (c *Coordinator) ResetData(ctx context.Context) error {
	if !c.policy.CanDelete(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	c.mu.Lock()
	c.snap.Transactions = []core.Transaction{}
	c.mu.Unlock()

	return c.persistTransactions(ctx, []core.Transaction{})
}

// Restore fully replaces transactions, categories, and the app name from
// a decoded backup. No merge, no validation beyond "did it parse".
func (c *Coordinator) Restore(ctx context.Context, txs []core.Transaction, cats []core.Category, appName string) error {
	if !c.policy.CanDelete(c.Role()) {
		return ErrPermission
	}
	c.status.begin()

	if txs == nil {
		txs = []core.Transaction{}
	}
	if len(cats) == 0 {
		cats = core.DefaultCategories()
	}

	c.mu.Lock()
	c.snap.Transactions = txs
	c.snap.Categories = cats
	if appName != "" {
		c.snap.Settings.AppName = appName
	}
	c.mu.Unlock()

	if err := c.store.SaveCollections(ctx, txs, cats); err != nil {
		c.status.fail()
		return err
	}
	if appName != "" {
		if err := c.store.Save(ctx, storage.KeyAppName, appName); err != nil {
			c.status.fail()
			return err
		}
		c.publish(ctx, notifier.KindAppName)
	}
	c.publish(ctx, notifier.KindTransactions)
	c.publish(ctx, notifier.KindCategories)
	c.status.settle()
	return nil
}

// publish is fire-and-forget: a failed announcement degrades cross-
// instance sync but never fails the local mutation, which is already
// persisted by the time this runs.
func (c *Coordinator) publish(ctx context.Context, kind string) {
	ev := notifier.Event{
		Kind:       kind,
		SenderRole: string(c.Role()),
		Timestamp:  time.Now(),
	}
	if err := c.notifier.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event", "kind", kind, "error", err)
	}
}

// Close releases the notifier. The store is owned by the caller.
func (c *Coordinator) Close() error {
	return c.notifier.Close()
}
