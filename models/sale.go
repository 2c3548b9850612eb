package models

import "time"

// Sale is one row of the sales input file.
type Sale struct {
	Date         time.Time
	Category     string
	TotalSales   float64
	QuantitySold float64

	// Raw holds the row's cells as read, in file column order.
	Raw []string
}

// Year returns the calendar year of the sale date.
func (s Sale) Year() int {
	return s.Date.Year()
}

// SalesData is a loaded sales file.
type SalesData struct {
	Columns []string
	Sales   []Sale
}
