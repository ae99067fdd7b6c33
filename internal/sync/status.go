package sync

import (
	stdsync "sync"
	"time"
)

// Status is the transient indicator state shown next to the balance.
// Transitions are time-driven, not acknowledgment-driven: Synced means
// "this instance believes its own write succeeded", not "all instances
// are consistent".
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

// statusMachine owns the indicator state and its single restartable
// timer. Every transition cancels any pending timer first, so overlapping
// mutations cannot leave stale timer chains racing each other.
type statusMachine struct {
	mu       stdsync.Mutex
	status   Status
	timer    *time.Timer
	listener func(Status)

	syncedDelay time.Duration
	idleDelay   time.Duration
}

func newStatusMachine(syncedDelay, idleDelay time.Duration) *statusMachine {
	return &statusMachine{
		status:      StatusIdle,
		syncedDelay: syncedDelay,
		idleDelay:   idleDelay,
	}
}

func (m *statusMachine) current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *statusMachine) onChange(fn func(Status)) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

// begin enters Syncing, cancelling any pending settle timer.
func (m *statusMachine) begin() {
	m.set(StatusSyncing)
}

// settle schedules Syncing -> Synced -> Idle. The delays are a deliberate
// UX pause; there is no remote round-trip to wait for.
func (m *statusMachine) settle() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.timer = time.AfterFunc(m.syncedDelay, func() {
		m.set(StatusSynced)
		m.mu.Lock()
		m.stopTimerLocked()
		m.timer = time.AfterFunc(m.idleDelay, func() {
			m.set(StatusIdle)
		})
		m.mu.Unlock()
	})
	m.mu.Unlock()
}

// fail enters Error and stays there until the next successful operation.
func (m *statusMachine) fail() {
	m.set(StatusError)
}

func (m *statusMachine) set(s Status) {
	m.mu.Lock()
	if s == StatusSyncing || s == StatusError {
		m.stopTimerLocked()
	}
	m.status = s
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(s)
	}
}

func (m *statusMachine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
