package models

import "time"

// EntryKind tags which sequence of a sale an entry belongs to.
type EntryKind string

const (
	EntryFull      EntryKind = "full"
	EntryEmpty     EntryKind = "empty"
	EntryMortality EntryKind = "mortality"
)

// Valid reports whether k is one of the supported entry kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryFull, EntryEmpty, EntryMortality:
		return true
	default:
		return false
	}
}

// Entry is an atomic weighing record. Count is a crate count for full/empty
// entries and a dead-bird count for mortality entries.
type Entry struct {
	ID        string    `bson:"id" json:"id"`
	Kind      EntryKind `bson:"kind" json:"kind"`
	Weight    float64   `bson:"weight" json:"weight"`
	Count     int       `bson:"count" json:"count"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SaleLedger is a single client transaction drawn against a provider's stock.
type SaleLedger struct {
	ID               string    `bson:"id" json:"id"`
	ClientName       string    `bson:"client_name" json:"client_name"`
	TargetFullCrates int       `bson:"target_full_crates" json:"target_full_crates"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	FullCrates       []Entry   `bson:"full_crates" json:"full_crates"`
	EmptyCrates      []Entry   `bson:"empty_crates" json:"empty_crates"`
	Mortality        []Entry   `bson:"mortality" json:"mortality"`
	IsCompleted      bool      `bson:"is_completed" json:"is_completed"`
}

// Entries returns the sequence holding entries of the given kind.
func (s *SaleLedger) Entries(kind EntryKind) []Entry {
	switch kind {
	case EntryFull:
		return s.FullCrates
	case EntryEmpty:
		return s.EmptyCrates
	case EntryMortality:
		return s.Mortality
	default:
		return nil
	}
}

// SetEntries replaces the sequence holding entries of the given kind.
func (s *SaleLedger) SetEntries(kind EntryKind, entries []Entry) {
	switch kind {
	case EntryFull:
		s.FullCrates = entries
	case EntryEmpty:
		s.EmptyCrates = entries
	case EntryMortality:
		s.Mortality = entries
	}
}

// FullCount is the number of crates sold on this ledger so far.
func (s *SaleLedger) FullCount() int {
	return sumCount(s.FullCrates)
}

// EmptyCount is the number of empty crates returned on this ledger so far.
func (s *SaleLedger) EmptyCount() int {
	return sumCount(s.EmptyCrates)
}

// Clone returns a deep copy that shares no slices with s.
func (s SaleLedger) Clone() SaleLedger {
	s.FullCrates = cloneEntries(s.FullCrates)
	s.EmptyCrates = cloneEntries(s.EmptyCrates)
	s.Mortality = cloneEntries(s.Mortality)
	return s
}

// ProviderStock owns the crate stock delivered by a provider and every sale
// drawn against it.
type ProviderStock struct {
	ID                string       `bson:"id" json:"id"`
	Name              string       `bson:"name" json:"name"`
	InitialFullCrates int          `bson:"initial_full_crates" json:"initial_full_crates"`
	ChickensPerCrate  int          `bson:"chickens_per_crate" json:"chickens_per_crate"`
	CreatedAt         time.Time    `bson:"created_at" json:"created_at"`
	Sales             []SaleLedger `bson:"sales" json:"sales"`
}

// SoldFullCrates sums full crate counts across every sale of the provider.
func (p *ProviderStock) SoldFullCrates() int {
	total := 0
	for i := range p.Sales {
		total += p.Sales[i].FullCount()
	}
	return total
}

// RemainingFullCrates may be negative when the stock was edited down after sales.
func (p *ProviderStock) RemainingFullCrates() int {
	return p.InitialFullCrates - p.SoldFullCrates()
}

// Clone returns a deep copy of the provider including its sales.
func (p ProviderStock) Clone() ProviderStock {
	sales := make([]SaleLedger, len(p.Sales))
	for i := range p.Sales {
		sales[i] = p.Sales[i].Clone()
	}
	p.Sales = sales
	return p
}

func sumCount(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Count
	}
	return total
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
