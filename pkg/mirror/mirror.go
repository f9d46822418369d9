// Package mirror keeps an in-memory copy of the students, payments and
// transactions collections consistent with the database, combining one bulk
// load at startup with the incremental change-event feed. The mirror never
// originates a write; it only reflects confirmed ones.
package mirror

import (
	"sort"
	"sync"

	"kaspku/models"
	"kaspku/pkg/feed"
)

// Mirror holds the three reflected collections keyed by entity id.
// Event application is idempotent: re-applying a created event for a known
// id overwrites instead of duplicating, an updated event for an unknown id
// inserts (a missed created), and a deleted event for an unknown id is a
// no-op. The feed preserves per-row ordering only, so arbitrary
// interleaving across different ids must be tolerated.
type Mirror struct {
	mu           sync.RWMutex
	students     map[string]models.Student
	payments     map[string]models.Payment
	transactions map[string]models.Transaction
}

func New() *Mirror {
	return &Mirror{
		students:     make(map[string]models.Student),
		payments:     make(map[string]models.Payment),
		transactions: make(map[string]models.Transaction),
	}
}

// Load replaces the mirror contents with the result of the initial bulk
// reads. It is called once at startup, before any events are applied.
func (m *Mirror) Load(students []models.Student, payments []models.Payment, transactions []models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = make(map[string]models.Student, len(students))
	for _, s := range students {
		m.students[s.ID] = s
	}
	m.payments = make(map[string]models.Payment, len(payments))
	for _, p := range payments {
		m.payments[p.ID] = p
	}
	m.transactions = make(map[string]models.Transaction, len(transactions))
	for _, t := range transactions {
		m.transactions[t.ID] = t
	}
}

// Apply folds one change event into the mirror. Events for unknown
// collections or carrying an unexpected entity type are ignored.
func (m *Mirror) Apply(ev feed.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Collection {
	case feed.CollectionStudents:
		s, ok := ev.Entity.(models.Student)
		if !ok {
			return
		}
		switch ev.Kind {
		case feed.KindCreated, feed.KindUpdated:
			m.students[s.ID] = s
		case feed.KindDeleted:
			delete(m.students, s.ID)
		}
	case feed.CollectionPayments:
		p, ok := ev.Entity.(models.Payment)
		if !ok {
			return
		}
		switch ev.Kind {
		case feed.KindCreated, feed.KindUpdated:
			m.payments[p.ID] = p
		case feed.KindDeleted:
			delete(m.payments, p.ID)
		}
	case feed.CollectionTransactions:
		t, ok := ev.Entity.(models.Transaction)
		if !ok {
			return
		}
		switch ev.Kind {
		case feed.KindCreated, feed.KindUpdated:
			m.transactions[t.ID] = t
		case feed.KindDeleted:
			delete(m.transactions, t.ID)
		}
	}
}

// Run applies events from ch until it is closed. On feed teardown the
// mirror keeps its last-known state rather than clearing.
func (m *Mirror) Run(ch <-chan feed.Event) {
	for ev := range ch {
		m.Apply(ev)
	}
}

// Students returns a snapshot sorted by name.
func (m *Mirror) Students() []models.Student {
	m.mu.RLock()
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Payments returns a snapshot sorted by creation time, newest first.
func (m *Mirror) Payments() []models.Payment {
	m.mu.RLock()
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PendingPayments returns the payments awaiting verification, oldest first.
func (m *Mirror) PendingPayments() []models.Payment {
	m.mu.RLock()
	out := make([]models.Payment, 0)
	for _, p := range m.payments {
		if p.Status == models.StatusPending {
			out = append(out, p)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Transactions returns a snapshot sorted by tanggal, newest first.
func (m *Mirror) Transactions() []models.Transaction {
	m.mu.RLock()
	out := make([]models.Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		out = append(out, t)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Tanggal.After(out[j].Tanggal) })
	return out
}

// Student looks up a single student by id.
func (m *Mirror) Student(id string) (models.Student, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	return s, ok
}
