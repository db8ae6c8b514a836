/*
store.go - Persistence interface for ledger sections

PURPOSE:
  Defines the interface between the engines and the database. The ledger
  is a handful of named sections (settings, payday history, bills, debts,
  charity, savings), each stored as one JSON document. Engines fetch a
  section, compute the new value, and persist it once.

KEY INTERFACES:
  SectionStore: get / put / append / compare-and-swap per section
  TxStore:      SectionStore plus WithTx for multi-section atomic writes

VERSIONING:
  Every write bumps the section's Version. PutSectionIfVersion only
  writes when the caller's version is still current, otherwise it fails
  with ErrConcurrentModification. Version 0 means "section absent", so a
  CAS against 0 doubles as create-if-absent.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, schema managed by golang-migrate
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - section.go: typed Load/Save/Append helpers on top of SectionStore
*/
package generic

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// SECTIONS
// =============================================================================

type SectionName string

const (
	SectionPaydaySettings  SectionName = "payday_settings"
	SectionPaydays         SectionName = "paydays"
	SectionBills           SectionName = "bills"
	SectionDebts           SectionName = "debts"
	SectionCharity         SectionName = "charity"
	SectionSavings         SectionName = "savings"
	SectionSavingsSettings SectionName = "savings_settings"
)

// AllSections lists every section the ledger owns.
var AllSections = []SectionName{
	SectionPaydaySettings,
	SectionPaydays,
	SectionBills,
	SectionDebts,
	SectionCharity,
	SectionSavings,
	SectionSavingsSettings,
}

// Section is one stored document. An absent section has a nil Value and
// Version 0.
type Section struct {
	Name      SectionName
	Value     json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// Exists reports whether the section has ever been written.
func (s Section) Exists() bool { return s.Version > 0 }

// =============================================================================
// STORE - Interface for section persistence
// =============================================================================

type SectionStore interface {
	// GetSection returns the stored section, or a zero Section when absent.
	GetSection(ctx context.Context, name SectionName) (Section, error)

	// PutSection replaces the section wholesale.
	PutSection(ctx context.Context, name SectionName, value json.RawMessage) error

	// AppendToSection appends item to an array section. An absent section
	// is treated as an empty array.
	AppendToSection(ctx context.Context, name SectionName, item json.RawMessage) error

	// PutSectionIfVersion replaces the section only if its current version
	// equals version. Returns ErrConcurrentModification otherwise.
	PutSectionIfVersion(ctx context.Context, name SectionName, value json.RawMessage, version int64) error

	// DeleteSection removes the section. Deleting an absent section is a no-op.
	DeleteSection(ctx context.Context, name SectionName) error

	// ListSections returns every stored section ordered by name.
	ListSections(ctx context.Context) ([]Section, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple sections
// =============================================================================

// TxStore wraps SectionStore with transaction support.
// Use this when one logical operation touches several sections
// (recording a payday writes paydays, settings, charity and savings).
type TxStore interface {
	SectionStore

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the handed store is
	// discarded. If fn returns nil, they are committed together.
	WithTx(ctx context.Context, fn func(SectionStore) error) error
}
