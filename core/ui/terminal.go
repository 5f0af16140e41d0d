// Package ui renders CLI output: colored messages, aligned tables, the
// quote summary box and a spinner for slow lookups.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Colors for terminal output
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

// Writer prints human-facing CLI output
type Writer struct {
	out       io.Writer
	noColor   bool
	verbosity int
}

// NewWriter returns a Writer at normal verbosity; a nil out means stdout.
func NewWriter(out io.Writer, noColor bool) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{out: out, noColor: noColor, verbosity: 1}
}

// SetVerbosity sets 0 for quiet, 1 for normal, 2 for debug output
func (w *Writer) SetVerbosity(level int) {
	w.verbosity = level
}

func (w *Writer) color(c, text string) string {
	if w.noColor {
		return text
	}
	return c + text + Reset
}

// Println writes one formatted line
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Header prints a blank-line padded section title
func (w *Writer) Header(title string) {
	fmt.Fprintf(w.out, "\n%s\n\n", w.color(Bold+Cyan, "━━━ "+title+" ━━━"))
}

// SubHeader prints a group title inside a section
func (w *Writer) SubHeader(title string) {
	w.Println("%s", w.color(Bold, "▸ "+title))
}

func (w *Writer) mark(minVerbosity int, c, icon, format string, args []interface{}) {
	if w.verbosity < minVerbosity {
		return
	}
	w.Println("%s%s", w.color(c, icon), fmt.Sprintf(format, args...))
}

func (w *Writer) Success(format string, args ...interface{}) { w.mark(0, Green, "✓ ", format, args) }
func (w *Writer) Warning(format string, args ...interface{}) { w.mark(0, Yellow, "⚠ ", format, args) }
func (w *Writer) Info(format string, args ...interface{}) { w.mark(1, Blue, "ℹ ", format, args) }
func (w *Writer) Debug(format string, args ...interface{}) { w.mark(2, Dim, "  ", format, args) }

// Table prints rows in aligned columns under a bold header
type Table struct {
	w       *Writer
	headers []string
	rows    [][]string
	widths  []int
	right   map[int]bool
}

// NewTable starts a table with the given column headers
func (w *Writer) NewTable(headers ...string) *Table {
	t := &Table{w: w, headers: headers, widths: make([]int, len(headers)), right: map[int]bool{}}
	t.fit(headers)
	return t
}

// AlignRight right-aligns the given columns, typically money
func (t *Table) AlignRight(columns ...int) *Table {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

// AddRow appends a row; cells beyond the header count are dropped
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.fit(row)
	t.rows = append(t.rows, row)
}

func (t *Table) fit(cells []string) {
	for i, cell := range cells {
		if n := len([]rune(cell)); n > t.widths[i] {
			t.widths[i] = n
		}
	}
}

// Render writes the header, a rule and every row
func (t *Table) Render() {
	t.w.Println("%s", t.w.color(Bold, t.line(t.headers)))

	rule := make([]string, len(t.widths))
	for i, n := range t.widths {
		rule[i] = strings.Repeat("─", n)
	}
	t.w.Println("%s", strings.Join(rule, "─┼─"))

	for _, row := range t.rows {
		t.w.Println("%s", t.line(row))
	}
}

func (t *Table) line(cells []string) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := strings.Repeat(" ", t.widths[i]-len([]rune(cell)))
		if t.right[i] {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, " │ "), " ")
}

// QuoteSummary renders the totals box of a priced order
type QuoteSummary struct {
	w             *Writer
	ProductLine   string
	Tier          string
	Quantity      int
	Subtotal      string
	Additional    string
	SetupFees     string
	LTMFee        string
	LTMPerUnit    string
	GrandTotal    string
	HasAdditional bool
	HasSetup      bool
	HasLTM        bool
}

// NewQuoteSummary creates a quote summary
func (w *Writer) NewQuoteSummary() *QuoteSummary {
	return &QuoteSummary{w: w}
}

// Render prints the quote summary
func (s *QuoteSummary) Render() {
	s.w.Header("Quote Summary")

	s.w.Println("%s", s.w.color(Dim, fmt.Sprintf("  %s · %d pieces · tier %s", s.ProductLine, s.Quantity, s.Tier)))
	s.w.Println("")

	s.w.Println("%s", s.w.color(Bold, "╭─────────────────────────────────────╮"))
	s.row("Subtotal", s.Subtotal, "")
	if s.HasAdditional {
		s.row("Additional logos", s.Additional, "")
	}
	if s.HasSetup {
		s.row("Setup fees", s.SetupFees, "")
	}
	if s.HasLTM {
		s.row("Less than minimum", s.LTMFee, Yellow)
	}
	s.row("Grand total", s.GrandTotal, Green)
	s.w.Println("%s", s.w.color(Bold, "╰─────────────────────────────────────╯"))

	if s.HasLTM {
		s.w.Println("")
		s.w.Warning("Small order fee adds %s per piece; order more to reach the next tier", s.LTMPerUnit)
	}
}

func (s *QuoteSummary) row(label, amount, c string) {
	text := fmt.Sprintf("  %-18s %15s  ", label+":", amount)
	if c != "" {
		text = s.w.color(c, text)
	}
	s.w.Println("%s%s%s", s.w.color(Bold, "│"), text, s.w.color(Bold, "│"))
}

// spinnerFrames are drawn in order, one per tick
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a label while a slow lookup runs
type Spinner struct {
	w     *Writer
	label string

	mu      sync.Mutex
	running bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner returns an idle spinner for label
func (w *Writer) NewSpinner(label string) *Spinner {
	return &Spinner{w: w, label: label, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start begins drawing frames in the background
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return
	}
	s.running = true

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for frame := 0; ; frame++ {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				icon := spinnerFrames[frame%len(spinnerFrames)]
				fmt.Fprintf(s.w.out, "\r%s %s", s.w.color(Cyan, icon), s.label)
			}
		}
	}()
}

// Stop clears the animation and prints the outcome. Only the first call
// has an effect.
func (s *Spinner) Stop(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
	if s.running {
		<-s.done
	}

	icon := s.w.color(Green, "✓")
	if !success {
		icon = s.w.color(Red, "✗")
	}
	fmt.Fprintf(s.w.out, "\r%s %s\n", icon, s.label)
}
