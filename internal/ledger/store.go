package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

const defaultSaveTimeout = 10 * time.Second

// Upper bounds on provider and sale definitions. They keep bird counts well
// inside int range.
const (
	MaxFullCrates       = 100_000
	MaxChickensPerCrate = 1_000
)

// Persistence is the key/value snapshot port the store writes through. A
// missing key loads as an empty collection or zero settings.
type Persistence interface {
	LoadProviders(ctx context.Context) ([]models.ProviderStock, error)
	SaveProviders(ctx context.Context, providers []models.ProviderStock) error
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

// ProviderInput describes a provider to create or the new values of an edit.
type ProviderInput struct {
	Name              string `json:"name"`
	InitialFullCrates int    `json:"initial_full_crates"`
	ChickensPerCrate  int    `json:"chickens_per_crate"`
}

// SaleInput describes a new client transaction.
type SaleInput struct {
	ClientName       string `json:"client_name"`
	TargetFullCrates int    `json:"target_full_crates"`
}

// Store owns the canonical provider tree. Mutations are serialized and each
// committed mutation is followed by a full snapshot write.
type Store struct {
	mu        sync.Mutex
	providers []models.ProviderStock
	settings  models.Settings

	persist     Persistence
	guard       Guard
	calc        Calculator
	logger      *zap.Logger
	saveTimeout time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithGuard replaces the guard, typically to pin ids and timestamps in tests.
func WithGuard(g Guard) Option {
	return func(s *Store) { s.guard = g }
}

// WithClock pins the clock used for entry and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.guard.now = now }
}

// WithIDGenerator replaces the identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.guard.newID = newID }
}

// NewStore builds an empty store. Call Load to hydrate it from persistence.
func NewStore(persist Persistence, calc Calculator, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		persist:     persist,
		guard:       NewGuard(),
		calc:        calc,
		logger:      logger,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted snapshot.
func (s *Store) Load(ctx context.Context) error {
	providers, err := s.persist.LoadProviders(ctx)
	if err != nil {
		return fmt.Errorf("load providers: %w", err)
	}
	settings, err := s.persist.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = providers
	s.settings = settings

	s.logger.Info("ledger loaded", zap.Int("providers", len(providers)))
	return nil
}

// Calculator exposes the metrics policy in use.
func (s *Store) Calculator() Calculator {
	return s.calc
}

// Providers returns a deep copy of every provider.
func (s *Store) Providers() []models.ProviderStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProviders(s.providers)
}

// Provider returns a copy of a single provider.
func (s *Store) Provider(providerID string) (models.ProviderStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProvider(providerID)
	if err != nil {
		return models.ProviderStock{}, err
	}
	return p.Clone(), nil
}

// Sale returns a copy of a sale together with the owning provider's
// chickens-per-crate reference.
func (s *Store) Sale(providerID, saleID string) (models.SaleLedger, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, sale, err := s.findSale(providerID, saleID)
	if err != nil {
		return models.SaleLedger{}, 0, err
	}
	return sale.Clone(), p.ChickensPerCrate, nil
}

// CreateProvider registers a new provider lot with an empty sales list.
func (s *Store) CreateProvider(ctx context.Context, in ProviderInput) (models.ProviderStock, error) {
	if err := validateProvider(in); err != nil {
		return models.ProviderStock{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.ProviderStock{
		ID:                s.guard.newID(),
		Name:              strings.TrimSpace(in.Name),
		InitialFullCrates: in.InitialFullCrates,
		ChickensPerCrate:  in.ChickensPerCrate,
		CreatedAt:         s.guard.now(),
		Sales:             []models.SaleLedger{},
	}
	s.providers = append(s.providers, p)

	return p.Clone(), s.snapshot(ctx, "create_provider")
}

// UpdateProvider edits a provider's definition. Stock is not re-checked
// against sales already recorded.
func (s *Store) UpdateProvider(ctx context.Context, providerID string, in ProviderInput) (models.ProviderStock, error) {
	if err := validateProvider(in); err != nil {
		return models.ProviderStock{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProvider(providerID)
	if err != nil {
		return models.ProviderStock{}, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.InitialFullCrates = in.InitialFullCrates
	p.ChickensPerCrate = in.ChickensPerCrate

	return p.Clone(), s.snapshot(ctx, "update_provider")
}

// CreateSale opens a new client transaction against a provider.
func (s *Store) CreateSale(ctx context.Context, providerID string, in SaleInput) (models.SaleLedger, error) {
	if strings.TrimSpace(in.ClientName) == "" {
		return models.SaleLedger{}, ValidationError{Field: "client_name", Message: "must not be empty"}
	}
	if in.TargetFullCrates <= 0 {
		return models.SaleLedger{}, ValidationError{Field: "target_full_crates", Message: "must be positive"}
	}
	if in.TargetFullCrates > MaxFullCrates {
		return models.SaleLedger{}, ValidationError{Field: "target_full_crates", Message: fmt.Sprintf("must not exceed %d", MaxFullCrates)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProvider(providerID)
	if err != nil {
		return models.SaleLedger{}, err
	}

	sale := models.SaleLedger{
		ID:               s.guard.newID(),
		ClientName:       strings.TrimSpace(in.ClientName),
		TargetFullCrates: in.TargetFullCrates,
		CreatedAt:        s.guard.now(),
		FullCrates:       []models.Entry{},
		EmptyCrates:      []models.Entry{},
		Mortality:        []models.Entry{},
	}
	p.Sales = append(p.Sales, sale)

	return sale.Clone(), s.snapshot(ctx, "create_sale")
}

// AddEntry runs the guard against the live sale and snapshots on success.
func (s *Store) AddEntry(ctx context.Context, providerID, saleID string, kind models.EntryKind, weight float64, count int) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, sale, err := s.findSale(providerID, saleID)
	if err != nil {
		return models.Entry{}, err
	}

	entry, err := s.guard.TryAddEntry(p, sale, kind, weight, count)
	if err != nil {
		s.logger.Debug("entry rejected",
			zap.String("provider_id", providerID),
			zap.String("sale_id", saleID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return models.Entry{}, err
	}

	return entry, s.snapshot(ctx, "add_entry")
}

// DeleteEntry removes an entry from an open sale. It reports false, with no
// snapshot written, when the sale is locked or the entry does not exist.
func (s *Store) DeleteEntry(ctx context.Context, providerID, saleID string, kind models.EntryKind, entryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, sale, err := s.findSale(providerID, saleID)
	if err != nil {
		return false, err
	}
	if !DeleteEntry(sale, kind, entryID) {
		return false, nil
	}
	return true, s.snapshot(ctx, "delete_entry")
}

// ToggleLock flips a sale between open and closed and returns the new state.
func (s *Store) ToggleLock(ctx context.Context, providerID, saleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, sale, err := s.findSale(providerID, saleID)
	if err != nil {
		return false, err
	}
	completed := ToggleLock(sale)
	return completed, s.snapshot(ctx, "toggle_lock")
}

// SetLock moves a sale to the given completed state and reports whether
// anything changed.
func (s *Store) SetLock(ctx context.Context, providerID, saleID string, completed bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, sale, err := s.findSale(providerID, saleID)
	if err != nil {
		return false, err
	}
	if sale.IsCompleted == completed {
		return false, nil
	}
	ToggleLock(sale)
	return true, s.snapshot(ctx, "toggle_lock")
}

// DeleteSale removes a sale and all of its entries.
func (s *Store) DeleteSale(ctx context.Context, providerID, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProvider(providerID)
	if err != nil {
		return err
	}
	for i := range p.Sales {
		if p.Sales[i].ID == saleID {
			p.Sales = append(p.Sales[:i:i], p.Sales[i+1:]...)
			return s.snapshot(ctx, "delete_sale")
		}
	}
	return ErrSaleNotFound
}

// DeleteProvider removes a provider together with its sales.
func (s *Store) DeleteProvider(ctx context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.providers {
		if s.providers[i].ID == providerID {
			s.providers = append(s.providers[:i:i], s.providers[i+1:]...)
			return s.snapshot(ctx, "delete_provider")
		}
	}
	return ErrProviderNotFound
}

// SaleMetrics recomputes a sale's metrics from its current entries.
func (s *Store) SaleMetrics(providerID, saleID string) (models.Metrics, error) {
	sale, perCrate, err := s.Sale(providerID, saleID)
	if err != nil {
		return models.Metrics{}, err
	}
	return s.calc.Compute(sale, perCrate), nil
}

// ProviderSummary computes every sale's metrics and their field-wise sum.
func (s *Store) ProviderSummary(providerID string) (models.ProviderSummary, error) {
	p, err := s.Provider(providerID)
	if err != nil {
		return models.ProviderSummary{}, err
	}
	return Summarize(s.calc, p), nil
}

// Summarize builds the aggregate view of a provider.
func Summarize(calc Calculator, p models.ProviderStock) models.ProviderSummary {
	summary := models.ProviderSummary{
		ProviderID:        p.ID,
		ProviderName:      p.Name,
		InitialFullCrates: p.InitialFullCrates,
		ChickensPerCrate:  p.ChickensPerCrate,
		SoldFullCrates:    p.SoldFullCrates(),
		RemainingCrates:   p.RemainingFullCrates(),
		Sales:             make([]models.SaleSummary, 0, len(p.Sales)),
	}

	parts := make([]models.Metrics, 0, len(p.Sales))
	for _, sale := range p.Sales {
		m := calc.Compute(sale, p.ChickensPerCrate)
		parts = append(parts, m)
		summary.Sales = append(summary.Sales, models.SaleSummary{
			SaleID:      sale.ID,
			ClientName:  sale.ClientName,
			IsCompleted: sale.IsCompleted,
			Metrics:     m,
		})
	}
	summary.Totals = SumMetrics(parts...)

	return summary
}

// Settings returns the app-level settings.
func (s *Store) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings replaces the app-level settings and writes them under their
// own key.
func (s *Store) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	switch settings.PreferredSink {
	case "", models.SinkDevice, models.SinkSystem:
	default:
		return models.Settings{}, ValidationError{Field: "preferred_sink", Message: fmt.Sprintf("unsupported sink %q", settings.PreferredSink)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()
	if err := s.persist.SaveSettings(saveCtx, settings); err != nil {
		s.logger.Warn("settings snapshot failed", zap.Error(err))
		return settings, &PersistenceError{Err: err}
	}
	return settings, nil
}

// snapshot writes the whole provider tree. Callers hold s.mu. A failure is
// logged and returned as a PersistenceError; the mutation is kept.
func (s *Store) snapshot(ctx context.Context, op string) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if err := s.persist.SaveProviders(saveCtx, cloneProviders(s.providers)); err != nil {
		s.logger.Warn("ledger snapshot failed", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Err: err}
	}
	return nil
}

func (s *Store) findProvider(providerID string) (*models.ProviderStock, error) {
	for i := range s.providers {
		if s.providers[i].ID == providerID {
			return &s.providers[i], nil
		}
	}
	return nil, ErrProviderNotFound
}

func (s *Store) findSale(providerID, saleID string) (*models.ProviderStock, *models.SaleLedger, error) {
	p, err := s.findProvider(providerID)
	if err != nil {
		return nil, nil, err
	}
	for i := range p.Sales {
		if p.Sales[i].ID == saleID {
			return p, &p.Sales[i], nil
		}
	}
	return nil, nil, ErrSaleNotFound
}

func validateProvider(in ProviderInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return ValidationError{Field: "name", Message: "must not be empty"}
	case in.InitialFullCrates < 0:
		return ValidationError{Field: "initial_full_crates", Message: "must not be negative"}
	case in.InitialFullCrates > MaxFullCrates:
		return ValidationError{Field: "initial_full_crates", Message: fmt.Sprintf("must not exceed %d", MaxFullCrates)}
	case in.ChickensPerCrate <= 0:
		return ValidationError{Field: "chickens_per_crate", Message: "must be positive"}
	case in.ChickensPerCrate > MaxChickensPerCrate:
		return ValidationError{Field: "chickens_per_crate", Message: fmt.Sprintf("must not exceed %d", MaxChickensPerCrate)}
	}
	return nil
}

func cloneProviders(providers []models.ProviderStock) []models.ProviderStock {
	out := make([]models.ProviderStock, len(providers))
	for i := range providers {
		out[i] = providers[i].Clone()
	}
	return out
}
