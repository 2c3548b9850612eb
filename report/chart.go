package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type seriesKind string

const (
	barSeries  seriesKind = "bar"
	lineSeries seriesKind = "line"
)

type series struct {
	kind   seriesKind
	values []float64
}

// xyChart renders a mermaid xychart-beta block.
type xyChart struct {
	title  string
	xAxis  []string
	yLabel string
	series []series
}

func (c *xyChart) add(kind seriesKind, values []float64) {
	c.series = append(c.series, series{kind: kind, values: values})
}

func (c *xyChart) String() string {
	lower, upper := c.bounds()

	var b strings.Builder
	b.WriteString("xychart-beta\n")
	fmt.Fprintf(&b, "    title %s\n", mermaidLabel(c.title))

	labels := make([]string, len(c.xAxis))
	for i, label := range c.xAxis {
		labels[i] = mermaidLabel(label)
	}
	fmt.Fprintf(&b, "    x-axis [%s]\n", strings.Join(labels, ", "))

	fmt.Fprintf(&b, "    y-axis %s %s --> %s\n", mermaidLabel(c.yLabel), formatPlain(lower), formatPlain(upper))

	for _, s := range c.series {
		values := make([]string, len(s.values))
		for i, v := range s.values {
			values[i] = formatPlain(v)
		}
		fmt.Fprintf(&b, "    %s [%s]\n", s.kind, strings.Join(values, ", "))
	}
	return b.String()
}

// bounds returns a y range that always includes zero and every value, with
// headroom past the extremes.
func (c *xyChart) bounds() (lower, upper float64) {
	for _, s := range c.series {
		for _, v := range s.values {
			lower = math.Min(lower, v)
			upper = math.Max(upper, v)
		}
	}
	lower *= 1.1
	upper *= 1.1
	if lower == 0 && upper == 0 {
		upper = 1
	}
	return lower, upper
}

// mermaidLabel quotes s for mermaid, which has no escape for embedded quotes.
func mermaidLabel(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
}

// tableCell escapes the markdown column separator.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
