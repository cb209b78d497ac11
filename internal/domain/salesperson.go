package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

// AvailabilitySeries is one salesperson's availability flags for a set of
// timestamps. The timestamps may be a subset of the locale's; merged cells
// with no matching timestamp are treated as unavailable.
type AvailabilitySeries struct {
	PersonID   int
	Timestamps []time.Time
	Available  []bool
}

// SalesSeries is an hourly sales count series.
type SalesSeries struct {
	Timestamps []time.Time
	Sales      []int
}

// ProductSales is a salesperson's terminal artifact: a wide table of hourly
// sales counts, one row per timestamp and one column per product id.
type ProductSales struct {
	Timestamps []time.Time
	ProductIDs []int
	Counts     [][]int // Counts[row][product]
}

// Copy returns a deep copy.
func (p *ProductSales) Copy() *ProductSales {
	out := &ProductSales{
		Timestamps: slices.Clone(p.Timestamps),
		ProductIDs: slices.Clone(p.ProductIDs),
		Counts:     make([][]int, len(p.Counts)),
	}
	for i, row := range p.Counts {
		out.Counts[i] = slices.Clone(row)
	}
	return out
}

// SalespersonModel is one salesperson in a locale's generation pipeline.
type SalespersonModel interface {
	PersonID() int
	PerformanceWeight() float64

	// Availability resolves a boolean flag per timestamp.
	Availability(timestamps []time.Time) AvailabilitySeries

	// AssignProducts spreads the person's hourly sales over the location's
	// product assortment and stores the result.
	AssignProducts(sales SalesSeries, productIDs []int) error

	// SalesByProduct returns the stored wide table, or an error when
	// generation has not produced one for this person.
	SalesByProduct() (*ProductSales, error)
}

// SalespersonConfig parameterizes a SimpleSalespersonModel, mapped from one
// catalog row by the catalog package.
type SalespersonConfig struct {
	PersonID          int
	PerformanceWeight float64
	// Working hours window [start, end), whole hours, non-wrapping.
	WorkingHoursStart int
	WorkingHoursEnd   int
	InjectNoise       bool
}

// Default working hours window.
const (
	DefaultWorkingHoursStart = 8
	DefaultWorkingHoursEnd   = 16
)

// SimpleSalespersonModel resolves availability from a fixed working-hours
// window and assigns sales to products either perfectly uniformly or by
// uniform random draw per sale.
type SimpleSalespersonModel struct {
	cfg SalespersonConfig
	rng *rand.Rand

	salesByProduct *ProductSales
}

// NewSimpleSalesperson constructs the model. A nil source seeds a fresh PCG
// from the global generator.
func NewSimpleSalesperson(cfg SalespersonConfig, src rand.Source) *SimpleSalespersonModel {
	if cfg.WorkingHoursStart == 0 && cfg.WorkingHoursEnd == 0 {
		cfg.WorkingHoursStart = DefaultWorkingHoursStart
		cfg.WorkingHoursEnd = DefaultWorkingHoursEnd
	}
	return &SimpleSalespersonModel{cfg: cfg, rng: rand.New(ensureSource(src))}
}

// PersonID returns the salesperson's id.
func (s *SimpleSalespersonModel) PersonID() int {
	return s.cfg.PersonID
}

// PerformanceWeight returns the allocation weight (≥ 0).
func (s *SimpleSalespersonModel) PerformanceWeight() float64 {
	return s.cfg.PerformanceWeight
}

// Availability flags each timestamp whose hour falls inside the half-open
// working-hours window [start, end).
func (s *SimpleSalespersonModel) Availability(timestamps []time.Time) AvailabilitySeries {
	available := make([]bool, len(timestamps))
	for i, ts := range timestamps {
		h := ts.UTC().Hour()
		available[i] = h >= s.cfg.WorkingHoursStart && h < s.cfg.WorkingHoursEnd
	}
	return AvailabilitySeries{
		PersonID:   s.cfg.PersonID,
		Timestamps: slices.Clone(timestamps),
		Available:  available,
	}
}

// AssignProducts distributes each hour's sales count across the product ids.
//
// Deterministic mode gives every product sales/n units and hands the
// remainder to a uniformly random, remainder-sized subset of products,
// independently per timestamp. The random remainder placement is deliberate
// even without noise injection: a fixed rule would bias low-indexed products.
//
// Noisy mode assigns each individual sale to a uniformly random product.
// Both modes preserve the hourly sum exactly.
func (s *SimpleSalespersonModel) AssignProducts(sales SalesSeries, productIDs []int) error {
	if len(productIDs) == 0 {
		return fmt.Errorf("assign products: product id list is empty")
	}
	if len(sales.Timestamps) != len(sales.Sales) {
		return fmt.Errorf("assign products: sales series has %d timestamps and %d counts", len(sales.Timestamps), len(sales.Sales))
	}

	n := len(productIDs)
	counts := make([][]int, len(sales.Sales))

	if s.cfg.InjectNoise {
		for t, total := range sales.Sales {
			row := make([]int, n)
			for range total {
				row[s.rng.IntN(n)]++
			}
			counts[t] = row
		}
	} else {
		for t, total := range sales.Sales {
			row := make([]int, n)
			base, remainder := total/n, total%n
			for p := range row {
				row[p] = base
			}
			for _, p := range s.rng.Perm(n)[:remainder] {
				row[p]++
			}
			counts[t] = row
		}
	}

	s.salesByProduct = &ProductSales{
		Timestamps: slices.Clone(sales.Timestamps),
		ProductIDs: slices.Clone(productIDs),
		Counts:     counts,
	}
	return nil
}

// SalesByProduct returns the stored wide table.
func (s *SimpleSalespersonModel) SalesByProduct() (*ProductSales, error) {
	if s.salesByProduct == nil {
		return nil, fmt.Errorf("salesperson %d: sales by product not generated", s.cfg.PersonID)
	}
	return s.salesByProduct, nil
}

// MergeAvailability left-joins each person's availability series onto the
// locale timestamps, in the given series order. A timestamp missing from a
// person's series yields an unavailable cell.
func MergeAvailability(timestamps []time.Time, series []AvailabilitySeries) [][]bool {
	merged := make([][]bool, len(timestamps))
	for i := range merged {
		merged[i] = make([]bool, len(series))
	}
	for p, s := range series {
		byTime := make(map[time.Time]bool, len(s.Timestamps))
		for i, ts := range s.Timestamps {
			byTime[ts.UTC()] = s.Available[i]
		}
		for i, ts := range timestamps {
			merged[i][p] = byTime[ts.UTC()]
		}
	}
	return merged
}

// AllocatePersonSales splits each hour's total across people proportional to
// performance weight among those available, ceiling each share. When nobody
// is available (or every available weight is zero) the hour's sales are
// dropped, not redistributed. Per-person ceiling means the row sum may exceed
// the total by up to one unit per additional positive share.
func AllocatePersonSales(totals []float64, availability [][]bool, weights []float64) [][]int {
	assigned := make([][]int, len(totals))
	for t := range totals {
		row := make([]int, len(weights))
		var rowSum float64
		weighted := make([]float64, len(weights))
		for p, w := range weights {
			if availability[t][p] {
				weighted[p] = w
				rowSum += w
			}
		}
		if rowSum != 0 {
			for p := range row {
				row[p] = int(math.Ceil(totals[t] * weighted[p] / rowSum))
			}
		}
		assigned[t] = row
	}
	return assigned
}
