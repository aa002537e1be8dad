package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/ledger"
	repo "github.com/mamadbah2/poultryledger/internal/repository/sheets"
	"github.com/mamadbah2/poultryledger/pkg/clients/anthropic"
)

const (
	dateLayout      = "2006-01-02"
	salesDataRange  = "Sales!A:N"
	salesIDRange    = "Sales!A:A"
	statusCompleted = "closed"
	statusOpen      = "open"
)

var (
	// ErrAIDisabled is returned when no summarization client is configured.
	ErrAIDisabled = errors.New("ai report is not configured")
	// ErrExportDisabled is returned when no spreadsheet is configured.
	ErrExportDisabled = errors.New("sheets export is not configured")
)

// Ledger is the read side of the store the reports are built from.
type Ledger interface {
	Providers() []models.ProviderStock
	Provider(providerID string) (models.ProviderStock, error)
	Calculator() ledger.Calculator
}

// Service produces AI reports, daily digests and spreadsheet exports from
// the current ledger state.
type Service struct {
	ledger   Ledger
	ai       anthropic.Client
	sheets   repo.Repository
	location *time.Location
	logger   *zap.Logger
}

// NewService wires a new reporting service instance. ai and sheets may be nil,
// which disables the matching operation.
func NewService(l Ledger, ai anthropic.Client, sheets repo.Repository, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	return &Service{ledger: l, ai: ai, sheets: sheets, location: location, logger: logger}
}

// BuildPrompt renders the aggregated figures the AI collaborator receives:
// stock position first, then one block per client.
func BuildPrompt(summary models.ProviderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\n", summary.ProviderName)
	fmt.Fprintf(&b, "Chickens per crate: %d\n", summary.ChickensPerCrate)
	fmt.Fprintf(&b, "Stock: %d initial crates, %d sold, %d remaining\n",
		summary.InitialFullCrates, summary.SoldFullCrates, summary.RemainingCrates)

	if len(summary.Sales) == 0 {
		b.WriteString("No sales recorded yet.\n")
	}
	for i, sale := range summary.Sales {
		m := sale.Metrics
		status := statusOpen
		if sale.IsCompleted {
			status = statusCompleted
		}
		fmt.Fprintf(&b, "\nClient %d: %s (%s)\n", i+1, sale.ClientName, status)
		fmt.Fprintf(&b, "- gross: %s kg over %d crates\n", fixed(m.FullWeight, 2), m.FullCount)
		fmt.Fprintf(&b, "- tare: %s kg (%s kg per crate, %d empty crates weighed)\n", fixed(m.TotalTare, 2), fixed(m.AvgTare, 3), m.EmptyCount)
		fmt.Fprintf(&b, "- mortality: %d birds, %s kg\n", m.DeadCount, fixed(m.DeadWeight, 2))
		fmt.Fprintf(&b, "- net: %s kg, %d birds, %s kg per bird\n", fixed(m.NetWeight, 2), m.TotalBirds, fixed(m.AvgWeightPerBird, 3))
	}

	t := summary.Totals
	fmt.Fprintf(&b, "\nTotals: gross %s kg, tare %s kg, mortality %d birds / %s kg, net %s kg\n",
		fixed(t.FullWeight, 2), fixed(t.TotalTare, 2), t.DeadCount, fixed(t.DeadWeight, 2), fixed(t.NetWeight, 2))

	return b.String()
}

// AIReport asks the summarization collaborator for a prose report on a
// provider. The answer is returned as is.
func (s *Service) AIReport(ctx context.Context, providerID string) (string, error) {
	if s.ai == nil {
		return "", ErrAIDisabled
	}

	p, err := s.ledger.Provider(providerID)
	if err != nil {
		return "", err
	}
	prompt := BuildPrompt(ledger.Summarize(s.ledger.Calculator(), p))

	report, err := s.ai.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize provider %s: %w", providerID, err)
	}

	s.logger.Info("ai report generated", zap.String("provider_id", providerID), zap.Int("chars", len(report)))
	return report, nil
}

// DailyDigest summarizes every provider lot created on the given day, in the
// service's time zone.
func (s *Service) DailyDigest(ctx context.Context, day time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start, end := s.dayBounds(day)
	calc := s.ledger.Calculator()

	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest %s\n", start.Format(dateLayout))

	var totals []models.Metrics
	lots := 0
	for _, p := range s.ledger.Providers() {
		created := p.CreatedAt.In(s.location)
		if created.Before(start) || !created.Before(end) {
			continue
		}
		lots++

		summary := ledger.Summarize(calc, p)
		open := 0
		for _, sale := range summary.Sales {
			if !sale.IsCompleted {
				open++
			}
		}
		fmt.Fprintf(&b, "\n%s: %d/%d crates sold, %d left\n", p.Name, summary.SoldFullCrates, summary.InitialFullCrates, summary.RemainingCrates)
		fmt.Fprintf(&b, "  %d clients (%d open), net %s kg, %d dead\n",
			len(summary.Sales), open, fixed(summary.Totals.NetWeight, 2), summary.Totals.DeadCount)
		totals = append(totals, summary.Totals)
	}

	if lots == 0 {
		b.WriteString("No provider lots recorded.\n")
		return b.String(), nil
	}

	all := ledger.SumMetrics(totals...)
	fmt.Fprintf(&b, "\nDay total: %d lots, net %s kg, %d birds, %d dead\n",
		lots, fixed(all.NetWeight, 2), all.TotalBirds, all.DeadCount)
	return b.String(), nil
}

// ExportProvider appends one row per closed sale of the provider to the sales
// sheet. Sales whose id is already present are skipped, so repeated exports
// only add what is new. It returns the number of rows written.
func (s *Service) ExportProvider(ctx context.Context, providerID string) (int, error) {
	if s.sheets == nil {
		return 0, ErrExportDisabled
	}

	p, err := s.ledger.Provider(providerID)
	if err != nil {
		return 0, err
	}

	exported, err := s.exportedSaleIDs(ctx)
	if err != nil {
		return 0, err
	}

	rows := s.saleRows(p, exported)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.sheets.AppendRows(ctx, salesDataRange, rows); err != nil {
		return 0, fmt.Errorf("export provider %s: %w", providerID, err)
	}

	s.logger.Info("provider exported to sheets", zap.String("provider_id", providerID), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// ExportAll exports the closed sales of every provider in a single append and
// returns the number of rows written.
func (s *Service) ExportAll(ctx context.Context) (int, error) {
	if s.sheets == nil {
		return 0, ErrExportDisabled
	}

	exported, err := s.exportedSaleIDs(ctx)
	if err != nil {
		return 0, err
	}

	var rows [][]interface{}
	for _, p := range s.ledger.Providers() {
		rows = append(rows, s.saleRows(p, exported)...)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.sheets.AppendRows(ctx, salesDataRange, rows); err != nil {
		return 0, fmt.Errorf("export sales: %w", err)
	}
	return len(rows), nil
}

func (s *Service) saleRows(p models.ProviderStock, exported map[string]struct{}) [][]interface{} {
	calc := s.ledger.Calculator()

	var rows [][]interface{}
	for _, sale := range p.Sales {
		if !sale.IsCompleted {
			continue
		}
		if _, ok := exported[sale.ID]; ok {
			continue
		}
		m := calc.Compute(sale, p.ChickensPerCrate)
		rows = append(rows, []interface{}{
			sale.ID,
			sale.CreatedAt.In(s.location).Format(dateLayout),
			p.Name,
			sale.ClientName,
			m.FullCount,
			round(m.FullWeight, 2),
			m.EmptyCount,
			round(m.TotalTare, 2),
			m.DeadCount,
			round(m.DeadWeight, 2),
			round(m.NetWeight, 2),
			m.TotalBirds,
			round(m.AvgWeightPerBird, 3),
			statusCompleted,
		})
		exported[sale.ID] = struct{}{}
	}
	return rows
}

func (s *Service) exportedSaleIDs(ctx context.Context) (map[string]struct{}, error) {
	values, err := s.sheets.ReadRange(ctx, salesIDRange)
	if err != nil {
		return nil, fmt.Errorf("load exported sales: %w", err)
	}

	ids := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func (s *Service) dayBounds(day time.Time) (time.Time, time.Time) {
	d := day.In(s.location)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
