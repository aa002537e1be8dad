package ledger

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// MaxEntryCount bounds the crate or bird count of a single entry.
const MaxEntryCount = 1_000_000

// Guard checks every entry addition against the current ledger state and
// commits it only when all invariants still hold afterwards.
type Guard struct {
	now   func() time.Time
	newID func() string
}

// NewGuard returns a Guard using wall-clock time and UUIDv7 identifiers.
func NewGuard() Guard {
	return Guard{now: time.Now, newID: NewID}
}

// NewID returns a time-ordered identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// TryAddEntry validates and appends a new entry to sale. The sale must be one
// of provider.Sales so that stock is counted across every client. On
// rejection neither the provider nor the sale is modified.
func (g Guard) TryAddEntry(provider *models.ProviderStock, sale *models.SaleLedger, kind models.EntryKind, weight float64, count int) (models.Entry, error) {
	if !kind.Valid() {
		return models.Entry{}, reject(ReasonInvalidInput, 0, "unknown entry kind %q", kind)
	}
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return models.Entry{}, reject(ReasonInvalidInput, 0, "weight must be a positive number, got %v", weight)
	}
	if count <= 0 || count > MaxEntryCount {
		return models.Entry{}, reject(ReasonInvalidInput, 0, "count must be between 1 and %d, got %d", MaxEntryCount, count)
	}
	if sale.IsCompleted {
		return models.Entry{}, reject(ReasonSaleLocked, 0, "sale for %s is closed", sale.ClientName)
	}

	switch kind {
	case models.EntryFull:
		// Compare against headroom: sold+count can overflow.
		remaining := provider.RemainingFullCrates()
		if count > remaining {
			return models.Entry{}, reject(ReasonStockExceeded, remaining,
				"only %d crates left in %s stock", max(remaining, 0), provider.Name)
		}
		clientLeft := sale.TargetFullCrates - sale.FullCount()
		if count > clientLeft {
			clientLeft = max(clientLeft, 0)
			return models.Entry{}, reject(ReasonClientLimitExceeded, clientLeft,
				"%s can take %d more crates (limit %d)", sale.ClientName, clientLeft, sale.TargetFullCrates)
		}
	case models.EntryEmpty:
		full := sale.FullCount()
		empty := sale.EmptyCount()
		if count > full-empty {
			return models.Entry{}, reject(ReasonEmptyExceedsFull, max(full-empty, 0),
				"%d more empty crates would exceed the %d full crates sold", count, full)
		}
	}

	entry := models.Entry{
		ID:        g.newID(),
		Kind:      kind,
		Weight:    weight,
		Count:     count,
		Timestamp: g.now(),
	}
	sale.SetEntries(kind, append(sale.Entries(kind), entry))

	return entry, nil
}

// DeleteEntry removes the entry with the given id. It reports false without
// touching the sale when the sale is locked or no entry matches.
func DeleteEntry(sale *models.SaleLedger, kind models.EntryKind, entryID string) bool {
	if sale.IsCompleted {
		return false
	}

	entries := sale.Entries(kind)
	for i, e := range entries {
		if e.ID != entryID {
			continue
		}
		kept := make([]models.Entry, 0, len(entries)-1)
		kept = append(kept, entries[:i]...)
		kept = append(kept, entries[i+1:]...)
		sale.SetEntries(kind, kept)
		return true
	}

	return false
}

// ToggleLock flips the completed flag and returns the new value.
func ToggleLock(sale *models.SaleLedger) bool {
	sale.IsCompleted = !sale.IsCompleted
	return sale.IsCompleted
}
