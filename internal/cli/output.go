package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"options-lab/internal/models"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorWhite   = "\033[37m"
	ColorBold    = "\033[1m"
	ColorDim     = "\033[2m"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	return &Output{
		writer:       w,
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && isTerminal(w),
	}
}

// isTerminal checks if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s%s%s\n", color, msg, ColorReset)
	} else {
		fmt.Fprintln(o.writer, msg)
	}
}

// ColoredString returns a colored string without newline.
func (o *Output) ColoredString(color, text string) string {
	if o.colorEnabled {
		return color + text + ColorReset
	}
	return text
}

// Green returns green colored text.
func (o *Output) Green(text string) string {
	return o.ColoredString(ColorGreen, text)
}

// Red returns red colored text.
func (o *Output) Red(text string) string {
	return o.ColoredString(ColorRed, text)
}

// Yellow returns yellow colored text.
func (o *Output) Yellow(text string) string {
	return o.ColoredString(ColorYellow, text)
}

// Source indicator constants
const (
	SourceSynth   = "SYNTH"
	SourceFixture = "FIXTURE"
	SourceDemo    = "DEMO"
	SourceBS      = "BS"
)

// SourceTag returns a formatted source indicator tag.
func (o *Output) SourceTag(source string) string {
	var color string
	switch source {
	case SourceSynth:
		color = ColorCyan
	case SourceFixture:
		color = ColorBlue
	case SourceDemo:
		color = ColorYellow
	case SourceBS:
		color = ColorMagenta
	default:
		color = ColorDim
	}
	return "[" + o.ColoredString(color, source) + "]"
}

// PnLColor returns the appropriate color for P&L.
func (o *Output) PnLColor(pnl float64) string {
	if pnl > 0 {
		return ColorGreen
	} else if pnl < 0 {
		return ColorRed
	}
	return ColorWhite
}

// FormatPnL formats P&L with color.
func (o *Output) FormatPnL(pnl float64) string {
	return o.ColoredString(o.PnLColor(pnl), FormatSignedUSD(pnl))
}

// FormatEdge formats a relative edge (0.1 = 10%) with color.
func (o *Output) FormatEdge(edge float64) string {
	return o.ColoredString(o.PnLColor(edge), FormatPercent(edge*100))
}

// Recommendation renders a BUY/SELL/FAIR call with color.
func (o *Output) Recommendation(rec models.Recommendation) string {
	switch rec {
	case models.RecommendBuy:
		return o.Green("↑ BUY")
	case models.RecommendSell:
		return o.Red("↓ SELL")
	case models.RecommendFair:
		return o.Yellow("→ FAIR")
	default:
		return string(rec)
	}
}

// Regime renders a volatility regime with color.
func (o *Output) Regime(r models.VolRegime) string {
	switch r {
	case models.VolLow:
		return o.Green(string(r))
	case models.VolNormal:
		return string(r)
	case models.VolHigh:
		return o.Yellow(string(r))
	case models.VolExtreme:
		return o.Red(string(r))
	default:
		return string(r)
	}
}

// Table is a column-aligned text table. Colored cells are measured without
// their escape codes.
type Table struct {
	output  *Output
	headers []string
	rows    [][]string
	right   map[int]bool
}

// NewTable creates a table with the given headers.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{output: output, headers: headers, right: make(map[int]bool)}
}

// AlignRight right-aligns the given columns, typically numbers.
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

// AddRow adds a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Render writes the header, a rule and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	measure := func(cells []string) {
		for i, cell := range cells {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	header := t.line(t.headers, widths)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	t.output.Println(t.output.ColoredString(ColorBold, header))
	t.output.Println(t.output.ColoredString(ColorDim, strings.Join(rule, "──")))
	for _, row := range t.rows {
		t.output.Println(t.line(row, widths))
	}
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		gap := strings.Repeat(" ", widths[i]-displayWidth(cell))
		if t.right[i] {
			parts[i] = gap + cell
		} else {
			parts[i] = cell + gap
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// displayWidth counts runes, ignoring ANSI color codes.
func displayWidth(s string) int {
	return utf8.RuneCountInString(ansiPattern.ReplaceAllString(s, ""))
}

// Box prints content inside a single-line frame with title as the first row.
func (o *Output) Box(title string, content []string) {
	inner := displayWidth(title)
	for _, line := range content {
		inner = max(inner, displayWidth(line))
	}

	rule := strings.Repeat("─", inner+2)
	row := func(s string) {
		o.Printf("│ %s%s │\n", s, strings.Repeat(" ", inner-displayWidth(s)))
	}

	o.Printf("┌%s┐\n", rule)
	row(o.ColoredString(ColorBold, title))
	o.Printf("├%s┤\n", rule)
	for _, line := range content {
		row(line)
	}
	o.Printf("└%s┘\n", rule)
}
