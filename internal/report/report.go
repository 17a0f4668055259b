// Package report prints extraction plans, progress and summaries to the console.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dbsmedya/warehouse-to-go/internal/extractor"
	"github.com/dbsmedya/warehouse-to-go/internal/manifest"
	"github.com/dbsmedya/warehouse-to-go/internal/plan"
)

var numbers = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. 10,000.
func FormatCount[T ~int | ~int64](n T) string {
	return numbers.Sprintf("%d", int64(n))
}

// Printer writes human readable output. It implements extractor.Reporter.
type Printer struct {
	w     io.Writer
	color bool
}

var _ extractor.Reporter = (*Printer)(nil)

// New returns a Printer writing to w. Colours are only emitted when useColor is set.
func New(w io.Writer, useColor bool) *Printer {
	return &Printer{w: w, color: useColor}
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Render(s)
}

func (p *Printer) style(s color.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// Title prints a bold cyan heading preceded by a blank line.
func (p *Printer) Title(s string) {
	p.println("")
	p.println(p.style(color.New(color.FgCyan, color.OpBold), s))
}

// Info prints a progress message.
func (p *Printer) Info(format string, args ...interface{}) {
	p.println(p.paint(color.FgYellow, fmt.Sprintf(format, args...)))
}

// Success prints a ✅ line.
func (p *Printer) Success(format string, args ...interface{}) {
	p.println(p.paint(color.FgGreen, "✅ "+fmt.Sprintf(format, args...)))
}

// Error prints a ❌ line.
func (p *Printer) Error(format string, args ...interface{}) {
	p.println(p.paint(color.FgRed, "❌ "+fmt.Sprintf(format, args...)))
}

// Plan lists every group and its tables with the limits they will be read with.
func (p *Printer) Plan(pl *plan.Plan) {
	for _, group := range pl.Groups() {
		p.println("")
		p.println(p.paint(color.FgCyan, group.Key))
		for _, unit := range group.Units {
			p.println(fmt.Sprintf("  • %s %s", unit.TableName, p.paint(color.FgDarkGray, "("+limits(unit)+")")))
		}
	}
}

func limits(unit plan.ExtractionUnit) string {
	rows := "no row limit"
	if unit.RowLimit > 0 {
		rows = "max " + FormatCount(unit.RowLimit) + " rows"
	}
	return rows + ", " + FormatCount(unit.BatchSize) + " per batch"
}

// GroupStarted prints the group heading.
func (p *Printer) GroupStarted(group *plan.Group) {
	p.println("")
	p.println(p.paint(color.FgCyan, group.Key))
}

// TableDone prints the ✓ or ✗ status line of one table.
func (p *Printer) TableDone(res extractor.TableResult) {
	p.println("  " + p.StatusLine(res))
}

// GroupDone is a no-op; group totals are printed by Summary.
func (p *Printer) GroupDone(*plan.Group, extractor.GroupStats) {}

// StatusLine formats the status of one table.
func (p *Printer) StatusLine(res extractor.TableResult) string {
	if !res.Success {
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return p.paint(color.FgRed, fmt.Sprintf("✗ %s: Failed to extract - %s", res.Ref, msg))
	}
	line := fmt.Sprintf("%s %s: %s rows", p.paint(color.FgGreen, "✓"), res.Ref, FormatCount(res.Rows))
	if res.Fallback {
		line += p.paint(color.FgDarkGray, " (via parquet)")
	}
	return line
}

// Summary prints per-group totals for a finished run.
func (p *Printer) Summary(result *extractor.RunResult) {
	p.println("")
	p.println(p.style(color.New(color.OpBold), "Extraction Summary:"))
	for el := result.Groups.Front(); el != nil; el = el.Next() {
		stats := el.Value
		line := fmt.Sprintf("  • %s: %s tables, %s rows", el.Key, FormatCount(stats.Tables), FormatCount(stats.Rows))
		if stats.Failed > 0 {
			line += p.paint(color.FgRed, fmt.Sprintf(" (%s failed)", FormatCount(stats.Failed)))
		}
		p.println(line)
	}
	p.println(fmt.Sprintf("  %s tables loaded, %s failed, %s rows in %s",
		FormatCount(result.TablesLoaded),
		FormatCount(result.TablesFailed),
		FormatCount(result.RowsWritten),
		result.Duration.Round(time.Millisecond),
	))

	failed := result.Failed()
	if len(failed) == 0 {
		return
	}
	p.println("")
	p.println(p.paint(color.FgRed, "Failed tables:"))
	for _, res := range failed {
		p.println("  " + p.StatusLine(res))
	}
}

// SourceSummary prints the Source/Database/Schema/Tables table.
func (p *Printer) SourceSummary(sources *manifest.Sources) {
	headers := []string{"Source", "Database", "Schema", "Tables"}
	var rows [][]string
	for el := sources.Front(); el != nil; el = el.Next() {
		src := el.Value
		rows = append(rows, []string{el.Key, src.Database, src.Schema, FormatCount(len(src.Tables))})
	}

	p.println(p.style(color.New(color.OpItalic), "Source Summary"))
	colours := []color.Color{color.FgCyan, color.FgGreen, color.FgYellow, color.FgMagenta}
	for _, line := range p.table(headers, rows, colours, map[int]bool{3: true}) {
		p.println(line)
	}
}

// table aligns cells by display width. Columns in right are right-justified.
func (p *Printer) table(headers []string, rows [][]string, colours []color.Color, right map[int]bool) []string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	pad := func(i int, s string) string {
		if right[i] {
			return runewidth.FillLeft(s, widths[i])
		}
		return runewidth.FillRight(s, widths[i])
	}

	var out []string
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = p.style(color.New(color.OpBold), pad(i, h))
	}
	out = append(out, strings.TrimRight(strings.Join(cells, "  "), " "))

	for i := range headers {
		cells[i] = strings.Repeat("─", widths[i])
	}
	out = append(out, strings.Join(cells, "  "))

	for _, row := range rows {
		for i, cell := range row {
			cells[i] = p.paint(colours[i], pad(i, cell))
		}
		out = append(out, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return out
}
