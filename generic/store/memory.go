// Package store provides SectionStore implementations.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps sections in a map. deleted holds the last version of every
// deleted section so a re-created section continues its version count.
type Memory struct {
	mu       sync.RWMutex
	sections map[generic.SectionName]generic.Section
	deleted  map[generic.SectionName]int64
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sections: make(map[generic.SectionName]generic.Section),
		deleted:  make(map[generic.SectionName]int64),
		now:      time.Now,
	}
}

func (m *Memory) GetSection(_ context.Context, name generic.SectionName) (generic.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(name), nil
}

func (m *Memory) PutSection(_ context.Context, name generic.SectionName, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(name, value)
}

func (m *Memory) AppendToSection(_ context.Context, name generic.SectionName, item json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(name, item)
}

func (m *Memory) PutSectionIfVersion(_ context.Context, name generic.SectionName, value json.RawMessage, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casLocked(name, value, version)
}

func (m *Memory) DeleteSection(_ context.Context, name generic.SectionName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(name)
	return nil
}

func (m *Memory) ListSections(_ context.Context) ([]generic.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(), nil
}

// -----------------------------------------------------------------------------
// Locked helpers shared with the transactional view
// -----------------------------------------------------------------------------

func (m *Memory) getLocked(name generic.SectionName) generic.Section {
	sec, ok := m.sections[name]
	if !ok {
		return generic.Section{Name: name}
	}
	sec.Value = bytes.Clone(sec.Value)
	return sec
}

func (m *Memory) putLocked(name generic.SectionName, value json.RawMessage) error {
	if !json.Valid(value) {
		return generic.Invalid("value", "section value is not valid JSON")
	}
	version := m.deleted[name]
	if prev, ok := m.sections[name]; ok {
		version = prev.Version
	}
	m.sections[name] = generic.Section{
		Name:      name,
		Value:     bytes.Clone(value),
		Version:   version + 1,
		UpdatedAt: m.now().UTC(),
	}
	return nil
}

func (m *Memory) appendLocked(name generic.SectionName, item json.RawMessage) error {
	next, err := generic.AppendRaw(m.sections[name].Value, item)
	if err != nil {
		return err
	}
	return m.putLocked(name, next)
}

func (m *Memory) casLocked(name generic.SectionName, value json.RawMessage, version int64) error {
	if m.sections[name].Version != version {
		return generic.ErrConcurrentModification
	}
	return m.putLocked(name, value)
}

func (m *Memory) deleteLocked(name generic.SectionName) {
	if sec, ok := m.sections[name]; ok {
		m.deleted[name] = sec.Version + 1
		delete(m.sections, name)
	}
}

func (m *Memory) listLocked() []generic.Section {
	out := make([]generic.Section, 0, len(m.sections))
	for name := range m.sections {
		out = append(out, m.getLocked(name))
	}
	slices.SortFunc(out, func(a, b generic.Section) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.SectionStore) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := maps.Clone(tm.sections)
	tombstones := maps.Clone(tm.deleted)

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.sections = snapshot
		tm.deleted = tombstones
		return err
	}
	return nil
}

// txMemoryView runs against the parent while its lock is held by WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetSection(_ context.Context, name generic.SectionName) (generic.Section, error) {
	return tv.parent.getLocked(name), nil
}

func (tv *txMemoryView) PutSection(_ context.Context, name generic.SectionName, value json.RawMessage) error {
	return tv.parent.putLocked(name, value)
}

func (tv *txMemoryView) AppendToSection(_ context.Context, name generic.SectionName, item json.RawMessage) error {
	return tv.parent.appendLocked(name, item)
}

func (tv *txMemoryView) PutSectionIfVersion(_ context.Context, name generic.SectionName, value json.RawMessage, version int64) error {
	return tv.parent.casLocked(name, value, version)
}

func (tv *txMemoryView) DeleteSection(_ context.Context, name generic.SectionName) error {
	tv.parent.deleteLocked(name)
	return nil
}

func (tv *txMemoryView) ListSections(_ context.Context) ([]generic.Section, error) {
	return tv.parent.listLocked(), nil
}
