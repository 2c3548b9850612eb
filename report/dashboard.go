// Package report renders the KPI dashboard and the catalog summary as
// Markdown documents with mermaid charts, and the dashboard as a workbook.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aluiziolira/automation-pilgrim/kpi"
	"github.com/aluiziolira/automation-pilgrim/models"
)

const notAvailable = "n/a"

var printer = message.NewPrinter(language.English)

// Dashboard is everything the KPI report shows.
type Dashboard struct {
	Columns     []string
	Sample      [][]string
	KPIs        kpi.Result
	GeneratedAt time.Time
}

// NewDashboard keeps the first sampleRows raw rows of data alongside the aggregates.
func NewDashboard(data *models.SalesData, result kpi.Result, sampleRows int) *Dashboard {
	d := &Dashboard{
		KPIs:        result,
		GeneratedAt: time.Now(),
	}
	if data == nil {
		return d
	}
	d.Columns = append([]string(nil), data.Columns...)
	for i, sale := range data.Sales {
		if i >= sampleRows {
			break
		}
		d.Sample = append(d.Sample, sale.Raw)
	}
	return d
}

// WriteDashboardMarkdown writes the four dashboard pages, separated by rules:
// the raw data sample, the KPI table, the sales bar chart and the AOV line chart.
func WriteDashboardMarkdown(w io.Writer, d *Dashboard) error {
	md := markdown.NewMarkdown(w)

	md.H1("KPI Dashboard")
	md.PlainTextf("Generated %s", d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	writeSamplePage(md, d)
	md.HorizontalRule()
	writeKPIPage(md, d)
	md.HorizontalRule()
	writeSalesChartPage(md, d)
	md.HorizontalRule()
	writeAOVChartPage(md, d)

	return md.Build()
}

func writeSamplePage(md *markdown.Markdown, d *Dashboard) {
	md.H2("Sample Raw Data")
	md.PlainText("")
	if len(d.Sample) == 0 || len(d.Columns) == 0 {
		md.PlainText("No rows loaded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(d.Sample))
	for i, raw := range d.Sample {
		row := make([]string, len(d.Columns))
		for j := range row {
			if j < len(raw) {
				row[j] = tableCell(raw[j])
			}
		}
		rows[i] = row
	}
	header := make([]string, len(d.Columns))
	for i, name := range d.Columns {
		header[i] = tableCell(name)
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}

func writeKPIPage(md *markdown.Markdown, d *Dashboard) {
	md.H2("Yearly KPIs - Total Sales, ROMS")
	md.PlainText("")
	md.Note(fmt.Sprintf("Marketing spend is assumed to be %.0f%% of total sales.", kpi.MarketingSpendRatio*100))
	md.PlainText("")

	rows := make([][]string, len(d.KPIs.Sales))
	for i, row := range d.KPIs.Sales {
		rows[i] = []string{
			strconv.Itoa(row.Year),
			tableCell(row.Category),
			formatAmount(row.TotalSales),
			formatAmount(row.MarketingSpend),
			formatMetric(row.ROMS),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Category", "TotalSales", "MarketingSpend", "ROMS"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeSalesChartPage(md *markdown.Markdown, d *Dashboard) {
	md.H2("Total Sales per Category (Yearly)")
	md.PlainText("")

	categories := d.KPIs.Categories()
	chart := &xyChart{title: "Total Sales per Category (Yearly)", xAxis: categories, yLabel: "Total Sales"}
	legend := make([][]string, 0)
	for _, year := range d.KPIs.Years() {
		values := make([]float64, len(categories))
		for i, category := range categories {
			for _, row := range d.KPIs.Sales {
				if row.Year == year && row.Category == category {
					values[i] = row.TotalSales
				}
			}
		}
		chart.add(barSeries, values)
		legend = append(legend, []string{strconv.Itoa(year), "bar " + strconv.Itoa(len(legend)+1)})
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Year", "Series"}, Rows: legend})
	md.PlainText("")
}

func writeAOVChartPage(md *markdown.Markdown, d *Dashboard) {
	md.H2("Average Order Value (AOV) per Category")
	md.PlainText("")

	categories := d.KPIs.Categories()
	chart := &xyChart{title: "Average Order Value (AOV) per Category", xAxis: categories, yLabel: "Average Order Value (AOV)"}
	var rows [][]string
	for _, year := range d.KPIs.Years() {
		values := make([]float64, len(categories))
		row := []string{strconv.Itoa(year)}
		for i, category := range categories {
			cell := notAvailable
			for _, avg := range d.KPIs.AOV {
				if avg.Year == year && avg.Category == category {
					if avg.AOV.Valid {
						values[i] = avg.AOV.Value
					}
					cell = formatMetric(avg.AOV)
				}
			}
			row = append(row, cell)
		}
		chart.add(lineSeries, values)
		rows = append(rows, row)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
	header := []string{"Year"}
	for _, category := range categories {
		header = append(header, tableCell(category))
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}

// WriteDashboardXLSX saves the sample, KPI and AOV tables as three sheets.
func WriteDashboardXLSX(path string, d *Dashboard) error {
	f := xlsx.NewFile()

	sample, err := f.AddSheet("Sample")
	if err != nil {
		return fmt.Errorf("add sample sheet: %w", err)
	}
	addStringRow(sample, d.Columns)
	for _, raw := range d.Sample {
		addStringRow(sample, raw)
	}

	kpis, err := f.AddSheet("KPIs")
	if err != nil {
		return fmt.Errorf("add kpi sheet: %w", err)
	}
	addStringRow(kpis, []string{"Year", "Category", "TotalSales", "MarketingSpend", "ROMS"})
	for _, row := range d.KPIs.Sales {
		r := kpis.AddRow()
		r.AddCell().SetInt(row.Year)
		r.AddCell().SetString(row.Category)
		r.AddCell().SetFloat(row.TotalSales)
		r.AddCell().SetFloat(row.MarketingSpend)
		addMetricCell(r, row.ROMS)
	}

	aov, err := f.AddSheet("AOV")
	if err != nil {
		return fmt.Errorf("add aov sheet: %w", err)
	}
	addStringRow(aov, []string{"Year", "Category", "AOV"})
	for _, row := range d.KPIs.AOV {
		r := aov.AddRow()
		r.AddCell().SetInt(row.Year)
		r.AddCell().SetString(row.Category)
		addMetricCell(r, row.AOV)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addMetricCell(row *xlsx.Row, m kpi.Metric) {
	cell := row.AddCell()
	if !m.Valid {
		cell.SetString(notAvailable)
		return
	}
	cell.SetFloat(m.Value)
}

func formatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func formatMetric(m kpi.Metric) string {
	if !m.Valid {
		return notAvailable
	}
	return formatAmount(m.Value)
}
