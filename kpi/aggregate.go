package kpi

import (
	"sort"

	"github.com/aluiziolira/automation-pilgrim/models"
)

// MarketingSpendRatio is the assumed share of sales spent on marketing.
// It is a fixed illustrative assumption, not a measured figure.
const MarketingSpendRatio = 0.10

// Metric is a ratio that may be undefined, e.g. after a division by zero.
type Metric struct {
	Value float64
	Valid bool
}

// Key groups aggregates by calendar year and category.
type Key struct {
	Year     int
	Category string
}

// SalesKPI is one row of the total-sales table.
type SalesKPI struct {
	Key
	TotalSales     float64
	MarketingSpend float64
	ROMS           Metric
}

// AOVKPI is one row of the average-order-value table.
type AOVKPI struct {
	Key
	AOV Metric
}

// Result holds the two independent aggregate tables, both sorted by year then category.
type Result struct {
	Sales []SalesKPI
	AOV   []AOVKPI
}

// Years returns the distinct years present in the sales table, ascending.
func (r Result) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, row := range r.Sales {
		if _, ok := seen[row.Year]; ok {
			continue
		}
		seen[row.Year] = struct{}{}
		years = append(years, row.Year)
	}
	sort.Ints(years)
	return years
}

// Categories returns the distinct categories present in the sales table, sorted.
func (r Result) Categories() []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, row := range r.Sales {
		if _, ok := seen[row.Category]; ok {
			continue
		}
		seen[row.Category] = struct{}{}
		categories = append(categories, row.Category)
	}
	sort.Strings(categories)
	return categories
}

type aovAccumulator struct {
	sum   float64
	count int
}

// Aggregate computes total sales, the marketing-spend proxy, ROMS and the
// mean per-row order value for every (year, category) group.
//
// ROMS is undefined when a group's total sales are zero. Rows with zero
// quantity sold have no order value and are left out of the mean; a group
// with no defined row has an undefined AOV.
func Aggregate(sales []models.Sale) Result {
	totals := make(map[Key]float64)
	aov := make(map[Key]*aovAccumulator)
	var keys []Key

	for _, sale := range sales {
		key := Key{Year: sale.Year(), Category: sale.Category}
		if _, ok := aov[key]; !ok {
			aov[key] = &aovAccumulator{}
			keys = append(keys, key)
		}
		totals[key] += sale.TotalSales
		if sale.QuantitySold != 0 {
			acc := aov[key]
			acc.sum += sale.TotalSales / sale.QuantitySold
			acc.count++
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Category < keys[j].Category
	})

	result := Result{
		Sales: make([]SalesKPI, 0, len(keys)),
		AOV:   make([]AOVKPI, 0, len(keys)),
	}
	for _, key := range keys {
		total := totals[key]
		spend := total * MarketingSpendRatio
		row := SalesKPI{Key: key, TotalSales: total, MarketingSpend: spend}
		if spend != 0 {
			row.ROMS = Metric{Value: total / spend, Valid: true}
		}
		result.Sales = append(result.Sales, row)

		acc := aov[key]
		avg := AOVKPI{Key: key}
		if acc.count > 0 {
			avg.AOV = Metric{Value: acc.sum / float64(acc.count), Valid: true}
		}
		result.AOV = append(result.AOV, avg)
	}
	return result
}
