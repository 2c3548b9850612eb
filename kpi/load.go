// Package kpi loads sales rows and derives yearly per-category KPIs from them.
package kpi

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aluiziolira/automation-pilgrim/models"
)

// Required input columns.
const (
	ColumnDate         = "Date"
	ColumnCategory     = "Category"
	ColumnTotalSales   = "TotalSales"
	ColumnQuantitySold = "QuantitySold"
)

var requiredColumns = []string{ColumnDate, ColumnCategory, ColumnTotalSales, ColumnQuantitySold}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"1/2/06",
	"01-02-06",
}

// saleRecord keeps numeric cells as text so padding can be trimmed before parsing.
type saleRecord struct {
	Date         string `csv:"Date"`
	Category     string `csv:"Category"`
	TotalSales   string `csv:"TotalSales"`
	QuantitySold string `csv:"QuantitySold"`
}

// Load reads a sales file, choosing the format from its extension (.csv or .xlsx).
func Load(path string) (*models.SalesData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "kpi: open %s", path)
		}
		defer f.Close()
		return LoadCSV(f)
	}
}

// LoadCSV decodes sales rows from CSV with a header row. A UTF-8 byte order
// mark and padding around header names are ignored.
func LoadCSV(r io.Reader) (*models.SalesData, error) {
	reader := csv.NewReader(r)
	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("kpi: csv input is empty")
		}
		return nil, eris.Wrap(err, "kpi: read csv header")
	}

	header := normalizeHeader(first)
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, eris.Wrap(err, "kpi: read csv header")
	}

	data := &models.SalesData{Columns: header}
	for line := 2; ; line++ {
		var rec saleRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "kpi: decode csv line %d", line)
		}
		sale, err := rec.sale()
		if err != nil {
			return nil, eris.Wrapf(err, "kpi: csv line %d", line)
		}
		sale.Raw = append([]string(nil), dec.Record()...)
		data.Sales = append(data.Sales, sale)
	}
	return data, nil
}

func (rec saleRecord) sale() (models.Sale, error) {
	date, err := parseDate(rec.Date)
	if err != nil {
		return models.Sale{}, err
	}
	total, err := parseNumber(ColumnTotalSales, rec.TotalSales)
	if err != nil {
		return models.Sale{}, err
	}
	quantity, err := parseNumber(ColumnQuantitySold, rec.QuantitySold)
	if err != nil {
		return models.Sale{}, err
	}
	return models.Sale{
		Date:         date,
		Category:     strings.TrimSpace(rec.Category),
		TotalSales:   total,
		QuantitySold: quantity,
	}, nil
}

// LoadXLSX reads sales rows from the first sheet of a workbook.
func LoadXLSX(path string) (*models.SalesData, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "kpi: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("kpi: workbook %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("kpi: sheet %q is empty", sheet.Name)
	}

	header := normalizeHeader(rowToStrings(sheet.Rows[0]))
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	index := columnIndex(header)

	data := &models.SalesData{Columns: header}
	for i, row := range sheet.Rows[1:] {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		line := i + 2
		sale, err := saleFromRow(row, index, f.Date1904)
		if err != nil {
			return nil, eris.Wrapf(err, "kpi: xlsx row %d", line)
		}
		data.Sales = append(data.Sales, sale)
	}
	return data, nil
}

func saleFromRow(row *xlsx.Row, index map[string]int, date1904 bool) (models.Sale, error) {
	cells := rowToStrings(row)
	cell := func(name string) string {
		if i := index[name]; i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	date, err := parseDate(cell(ColumnDate))
	if err != nil {
		i := index[ColumnDate]
		if i >= len(row.Cells) {
			return models.Sale{}, err
		}
		serial, ferr := row.Cells[i].Float()
		if ferr != nil {
			return models.Sale{}, err
		}
		date = xlsx.TimeFromExcelTime(serial, date1904)
	}

	total, err := parseNumber(ColumnTotalSales, cell(ColumnTotalSales))
	if err != nil {
		return models.Sale{}, err
	}
	quantity, err := parseNumber(ColumnQuantitySold, cell(ColumnQuantitySold))
	if err != nil {
		return models.Sale{}, err
	}

	return models.Sale{
		Date:         date,
		Category:     cell(ColumnCategory),
		TotalSales:   total,
		QuantitySold: quantity,
		Raw:          cells,
	}, nil
}

func normalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	for i, name := range cells {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = strings.TrimSpace(name)
	}
	return header
}

func checkColumns(header []string) error {
	index := columnIndex(header)
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("kpi: missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	return index
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("kpi: unrecognised date %q", value)
}

func parseNumber(column, value string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "kpi: column %s", column)
	}
	return n, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
