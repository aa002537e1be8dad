package ledger

import (
	"context"
	"fmt"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// Action names a destructive or state-changing operation that needs operator
// confirmation before it is committed.
type Action string

const (
	ActionDeleteEntry    Action = "delete_entry"
	ActionToggleLock     Action = "toggle_lock"
	ActionDeleteSale     Action = "delete_sale"
	ActionDeleteProvider Action = "delete_provider"
)

// Proposal describes the effect of an action. Callers obtain confirmation
// however they like and hand the proposal back to Commit.
type Proposal struct {
	Action      Action           `json:"action"`
	ProviderID  string           `json:"provider_id"`
	SaleID      string           `json:"sale_id,omitempty"`
	Kind        models.EntryKind `json:"kind,omitempty"`
	EntryID     string           `json:"entry_id,omitempty"`
	Description string           `json:"description,omitempty"`
	// NoOp is set when committing would change nothing, e.g. deleting from a
	// locked sale.
	NoOp bool `json:"no_op"`
	// LockTarget is the completed state a toggle proposal moves the sale to.
	LockTarget bool `json:"lock_target,omitempty"`
}

// Propose resolves the targets of p and fills in its description.
func (s *Store) Propose(p Proposal) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.NoOp = false
	switch p.Action {
	case ActionDeleteEntry:
		_, sale, err := s.findSale(p.ProviderID, p.SaleID)
		if err != nil {
			return Proposal{}, err
		}
		entry, ok := findEntry(sale, p.Kind, p.EntryID)
		if !ok {
			return Proposal{}, ErrEntryNotFound
		}
		p.Description = fmt.Sprintf("Delete %s entry of %.2f kg (%d) from %s", p.Kind, entry.Weight, entry.Count, sale.ClientName)
		if sale.IsCompleted {
			p.NoOp = true
			p.Description += " (sale is closed, nothing will change)"
		}
	case ActionToggleLock:
		_, sale, err := s.findSale(p.ProviderID, p.SaleID)
		if err != nil {
			return Proposal{}, err
		}
		p.LockTarget = !sale.IsCompleted
		if p.LockTarget {
			p.Description = fmt.Sprintf("Close sale of %s; entries can no longer be added or removed", sale.ClientName)
		} else {
			p.Description = fmt.Sprintf("Reopen sale of %s for editing", sale.ClientName)
		}
	case ActionDeleteSale:
		_, sale, err := s.findSale(p.ProviderID, p.SaleID)
		if err != nil {
			return Proposal{}, err
		}
		entries := len(sale.FullCrates) + len(sale.EmptyCrates) + len(sale.Mortality)
		p.Description = fmt.Sprintf("Delete sale of %s with %d entries", sale.ClientName, entries)
	case ActionDeleteProvider:
		provider, err := s.findProvider(p.ProviderID)
		if err != nil {
			return Proposal{}, err
		}
		p.Description = fmt.Sprintf("Delete provider %s with %d sales", provider.Name, len(provider.Sales))
	default:
		return Proposal{}, fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}

	return p, nil
}

// Commit applies a confirmed proposal. A toggle proposal whose sale already
// reached LockTarget changes nothing.
func (s *Store) Commit(ctx context.Context, p Proposal) error {
	switch p.Action {
	case ActionDeleteEntry:
		_, err := s.DeleteEntry(ctx, p.ProviderID, p.SaleID, p.Kind, p.EntryID)
		return err
	case ActionToggleLock:
		_, err := s.SetLock(ctx, p.ProviderID, p.SaleID, p.LockTarget)
		return err
	case ActionDeleteSale:
		return s.DeleteSale(ctx, p.ProviderID, p.SaleID)
	case ActionDeleteProvider:
		return s.DeleteProvider(ctx, p.ProviderID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}
}

func findEntry(sale *models.SaleLedger, kind models.EntryKind, entryID string) (models.Entry, bool) {
	for _, e := range sale.Entries(kind) {
		if e.ID == entryID {
			return e, true
		}
	}
	return models.Entry{}, false
}
