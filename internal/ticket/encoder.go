package ticket

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

const (
	// DefaultWidth fits a 58 mm roll in the printer's default font.
	DefaultWidth = 32
	dateLayout   = "2006-01-02 15:04"
)

// Encoder turns ledger summaries into printable ticket streams. It does not
// know where the stream goes.
type Encoder struct {
	Title   string
	Width   int
	Dialect Dialect
}

// NewEncoder returns an ESC/POS encoder.
func NewEncoder(title string, width int) *Encoder {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Encoder{Title: title, Width: width, Dialect: ESCPOS}
}

// ClientTicket encodes the metrics of one sale.
func (e *Encoder) ClientTicket(providerName string, sale models.SaleSummary, at time.Time) []byte {
	m := sale.Metrics
	b := e.header(providerName, at)

	b.Field("Client", sale.ClientName)
	b.Field("Status", saleStatus(sale.IsCompleted))
	b.Rule()
	b.Field("Full crates", count(m.FullCount))
	b.Field("Gross weight", kg(m.FullWeight, 2))
	b.Field("Empty crates", count(m.EmptyCount))
	b.Field("Empty weight", kg(m.EmptyWeight, 2))
	b.Field("Avg tare/crate", kg(m.AvgTare, 3))
	b.Field("Total tare", kg(m.TotalTare, 2))
	b.Field("Dead birds", count(m.DeadCount))
	b.Field("Dead weight", kg(m.DeadWeight, 2))
	b.Field("Birds", count(m.TotalBirds))
	b.Field("Avg per bird", kg(m.AvgWeightPerBird, 3))
	b.Rule()

	return e.footer(b, "NET WEIGHT", m.NetWeight)
}

// ProviderTicket encodes a provider's stock position, one line per sale and
// the summed totals. The footer uses summary.Totals, which is the field-wise
// sum of the per-sale metrics.
func (e *Encoder) ProviderTicket(summary models.ProviderSummary, at time.Time) []byte {
	t := summary.Totals
	b := e.header(summary.ProviderName, at)

	b.Field("Initial stock", count(summary.InitialFullCrates))
	b.Field("Crates sold", count(summary.SoldFullCrates))
	b.Field("Crates left", count(summary.RemainingCrates))
	b.Rule()
	for _, sale := range summary.Sales {
		b.Field(sale.ClientName, kg(sale.Metrics.NetWeight, 2))
		b.Field("  crates/dead", count(sale.Metrics.FullCount)+"/"+count(sale.Metrics.DeadCount))
	}
	b.Rule()
	b.Field("Gross weight", kg(t.FullWeight, 2))
	b.Field("Total tare", kg(t.TotalTare, 2))
	b.Field("Dead weight", kg(t.DeadWeight, 2))
	b.Field("Birds", count(t.TotalBirds))
	b.Field("Avg per bird", kg(t.AvgWeightPerBird, 3))
	b.Rule()

	return e.footer(b, "TOTAL NET", t.NetWeight)
}

// Preview renders stream as plain text with every control code removed.
func (e *Encoder) Preview(stream []byte) string {
	return string(e.dialect().Strip(stream))
}

func (e *Encoder) header(subtitle string, at time.Time) *Builder {
	b := NewBuilder(e.dialect(), e.Width)
	b.Directive(Init).
		Directive(AlignCenter).
		Directive(BoldOn).
		Line(e.Title).
		Directive(BoldOff).
		Line(subtitle).
		Line(at.Format(dateLayout)).
		Directive(AlignLeft).
		Rule()
	return b
}

func (e *Encoder) footer(b *Builder, label string, net float64) []byte {
	b.Directive(BoldOn).
		Field(label, kg(net, 2)).
		Directive(BoldOff).
		Feed(3).
		Directive(Cut)
	return b.Bytes()
}

func (e *Encoder) dialect() Dialect {
	if e.Dialect == nil {
		return ESCPOS
	}
	return e.Dialect
}

func saleStatus(completed bool) string {
	if completed {
		return "CLOSED"
	}
	return "OPEN"
}

func kg(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places) + " kg"
}

func count(n int) string {
	return strconv.Itoa(n)
}
