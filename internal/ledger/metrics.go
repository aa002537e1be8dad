package ledger

import (
	"math"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// DefaultTareKg is the tare assumed per crate before any empty crate is weighed.
const DefaultTareKg = 2.5

// Calculator derives sale metrics. It holds only policy constants and is safe
// to copy.
type Calculator struct {
	DefaultTare float64
}

// NewCalculator returns a Calculator, substituting DefaultTareKg for a
// non-positive tare.
func NewCalculator(defaultTare float64) Calculator {
	if defaultTare <= 0 || math.IsNaN(defaultTare) || math.IsInf(defaultTare, 0) {
		defaultTare = DefaultTareKg
	}
	return Calculator{DefaultTare: defaultTare}
}

// ComputeMetrics derives metrics with the default tare policy.
func ComputeMetrics(sale models.SaleLedger, chickensPerCrate int) models.Metrics {
	return NewCalculator(DefaultTareKg).Compute(sale, chickensPerCrate)
}

// Compute derives the totals of a sale. It never fails: every division is
// guarded and the net weight is clamped at zero.
func (c Calculator) Compute(sale models.SaleLedger, chickensPerCrate int) models.Metrics {
	var m models.Metrics

	for _, e := range sale.FullCrates {
		m.FullWeight += e.Weight
		m.FullCount += e.Count
	}
	for _, e := range sale.EmptyCrates {
		m.EmptyWeight += e.Weight
		m.EmptyCount += e.Count
	}
	for _, e := range sale.Mortality {
		m.DeadWeight += e.Weight
		m.DeadCount += e.Count
	}

	m.AvgTare = c.DefaultTare
	if m.AvgTare <= 0 {
		m.AvgTare = DefaultTareKg
	}
	if m.EmptyCount > 0 {
		m.AvgTare = m.EmptyWeight / float64(m.EmptyCount)
	}

	m.TotalTare = float64(m.FullCount) * m.AvgTare
	m.NetWeight = math.Max(0, m.FullWeight-m.TotalTare-m.DeadWeight)
	m.TotalBirds = m.FullCount*chickensPerCrate - m.DeadCount
	if m.TotalBirds > 0 {
		m.AvgWeightPerBird = m.NetWeight / float64(m.TotalBirds)
	}

	return m
}

// SumMetrics adds metrics field by field. Averages are re-derived from the
// summed totals so the aggregate net weight equals the sum of the parts.
func SumMetrics(parts ...models.Metrics) models.Metrics {
	var total models.Metrics
	for _, m := range parts {
		total.FullWeight += m.FullWeight
		total.FullCount += m.FullCount
		total.EmptyWeight += m.EmptyWeight
		total.EmptyCount += m.EmptyCount
		total.DeadWeight += m.DeadWeight
		total.DeadCount += m.DeadCount
		total.TotalTare += m.TotalTare
		total.NetWeight += m.NetWeight
		total.TotalBirds += m.TotalBirds
	}

	if total.FullCount > 0 {
		total.AvgTare = total.TotalTare / float64(total.FullCount)
	}
	if total.TotalBirds > 0 {
		total.AvgWeightPerBird = total.NetWeight / float64(total.TotalBirds)
	}

	return total
}
