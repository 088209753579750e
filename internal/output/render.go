package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"

	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
)

// TimeLayout is how timestamps are shown in tables and CSV exports.
const TimeLayout = "2006-01-02 15:04:05 MST"

// Record is a row that can be rendered through a field map.
type Record interface {
	Key() string
	Field(name string) (any, bool)
}

// Renderer writes command results. Data goes to out; notices and errors go
// to errOut so piped output stays machine-readable.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	styled bool
	piped  bool
	loc    *time.Location

	// Text styles
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Success lipgloss.Style

	// Table styles
	Header lipgloss.Style
	Cell   lipgloss.Style

	// State styles
	Activated lipgloss.Style
	Suspended lipgloss.Style
	Staged    lipgloss.Style
}

// Options configures a Renderer.
type Options struct {
	Out    io.Writer
	ErrOut io.Writer

	// Location renders timestamps; nil means UTC
	Location *time.Location

	// Piped forces id-only output. When nil it is detected from Out.
	Piped *bool
}

// NewRenderer creates a renderer. Styling is enabled only when out is a TTY.
func NewRenderer(opts Options) *Renderer {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	isTTY := IsTerminal(opts.Out)
	piped := !isTTY
	if opts.Piped != nil {
		piped = *opts.Piped
	}

	r := &Renderer{
		out:    opts.Out,
		errOut: opts.ErrOut,
		styled: isTTY,
		piped:  piped,
		loc:    opts.Location,
	}

	if r.styled {
		r.Title = lipgloss.NewStyle().Bold(true).Italic(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
		r.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		r.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
		r.Cell = lipgloss.NewStyle()
		r.Activated = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		r.Suspended = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		r.Staged = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	} else {
		r.Title = lipgloss.NewStyle()
		r.Muted = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle()
		r.Hint = lipgloss.NewStyle()
		r.Success = lipgloss.NewStyle()
		r.Header = lipgloss.NewStyle()
		r.Cell = lipgloss.NewStyle()
		r.Activated = lipgloss.NewStyle()
		r.Suspended = lipgloss.NewStyle()
		r.Staged = lipgloss.NewStyle()
	}

	return r
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// Piped reports whether results are being consumed by another program.
func (r *Renderer) Piped() bool {
	return r.piped
}

// PrintRecords prints records as JSON, as bare ids when piped, or as a table
// titled "<title> - Total Count: N".
func PrintRecords[T Record](r *Renderer, title string, records []T, columns config.FieldMap, asJSON bool) error {
	switch {
	case asJSON:
		return r.PrintJSON(records)
	case r.piped:
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.Key()
		}
		return r.PrintValues(ids)
	default:
		return r.renderTable(fmt.Sprintf("%s - Total Count: %d", title, len(records)), columns.Headers(), tableRows(r, records, columns))
	}
}

func tableRows[T Record](r *Renderer, records []T, columns config.FieldMap) [][]string {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = r.styleCell(rec, col.Field)
		}
		rows[i] = row
	}
	return rows
}

func (r *Renderer) renderTable(title string, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header.PaddingRight(1)
			}
			return r.Cell.PaddingRight(1)
		}).
		Headers(headers...).
		Rows(rows...)

	var b strings.Builder
	b.WriteString(r.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")

	_, err := io.WriteString(r.out, b.String())
	return err
}

// PrintJSON prints v as indented JSON.
func (r *Renderer) PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = r.out.Write(data)
	return err
}

// PrintValue prints a single value on its own line.
func (r *Renderer) PrintValue(v string) error {
	_, err := fmt.Fprintln(r.out, v)
	return err
}

// PrintValues prints one value per line.
func (r *Renderer) PrintValues(values []string) error {
	for _, v := range values {
		if err := r.PrintValue(v); err != nil {
			return err
		}
	}
	return nil
}

// Notice prints an informational message on the error stream.
func (r *Renderer) Notice(format string, args ...any) {
	fmt.Fprintln(r.errOut, r.Muted.Render(fmt.Sprintf(format, args...)))
}

// PrintError prints err with its hint on the error stream.
func (r *Renderer) PrintError(err error) {
	e := AsError(err)
	fmt.Fprintln(r.errOut, r.Error.Render("Error: "+e.Message))
	if e.Hint != "" {
		fmt.Fprintln(r.errOut, r.Hint.Render(e.Hint))
	}
}

// styleCell renders one field, colouring states and localising timestamps.
func (r *Renderer) styleCell(rec Record, field string) string {
	v, ok := rec.Field(field)
	if !ok {
		return ""
	}
	if state, ok := v.(jumpcloud.State); ok {
		return r.stateStyle(state).Render(string(state))
	}
	return r.FormatValue(v)
}

func (r *Renderer) stateStyle(s jumpcloud.State) lipgloss.Style {
	switch s {
	case jumpcloud.StateActivated:
		return r.Activated
	case jumpcloud.StateSuspended:
		return r.Suspended
	case jumpcloud.StateStaged:
		return r.Staged
	default:
		return r.Cell
	}
}

// FormatValue renders a field value as plain text.
func (r *Renderer) FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case jumpcloud.State:
		return string(val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.In(r.loc).Format(TimeLayout)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
