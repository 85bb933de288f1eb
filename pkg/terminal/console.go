// Package terminal renders human and machine output and asks the operator
// questions.
package terminal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format selects how result documents are rendered.
type Format string

// Output formats. FormatText leaves the result to human messages.
const (
	FormatText Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrInvalidOutput is returned for unknown output formats.
var ErrInvalidOutput = errors.New("invalid output format")

const yamlIndent = 2

// ParseFormat validates name as an output format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (expected json or yaml)", ErrInvalidOutput, name)
	}
}

var (
	styleBold    = color.New(color.Bold)
	styleTitle   = color.New(color.FgBlue, color.Bold)
	styleAccent  = color.New(color.FgBlue)
	styleDim     = color.New(color.Faint)
	styleWarn    = color.New(color.FgYellow)
	styleSuccess = color.New(color.FgGreen)
	styleFail    = color.New(color.FgRed, color.Bold)
)

// Console writes messages for the operator. A silent console drops messages
// so rendered documents stay parseable.
type Console struct {
	out    io.Writer
	silent bool
}

// NewConsole writes to out.
func NewConsole(out io.Writer, silent bool) *Console {
	return &Console{out: out, silent: silent}
}

// Emit prints one message line.
func (c *Console) Emit(msg string) {
	if c.silent {
		return
	}

	fmt.Fprintln(c.out, msg)
}

// Emitf formats and prints one message line.
func (c *Console) Emitf(format string, args ...any) {
	c.Emit(fmt.Sprintf(format, args...))
}

// Warn prints a highlighted warning.
func (c *Console) Warn(msg string) {
	c.Emit(styleWarn.Sprint(msg))
}

// Success prints a highlighted confirmation.
func (c *Console) Success(msg string) {
	c.Emit(styleSuccess.Sprint(msg))
}

// Error prints an error.
func (c *Console) Error(err error) {
	c.Emit(styleFail.Sprint("ERROR: ") + err.Error())
}

// Render writes doc in format. Rendering ignores silence.
func (c *Console) Render(format Format, doc any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("render json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("render yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, format)
	}
}

// Table prints rows under header, with an optional footer line.
func (c *Console) Table(header table.Row, rows []table.Row, footer string) {
	if c.silent {
		return
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.AppendHeader(header)
	tbl.AppendRows(rows)

	if footer != "" {
		tbl.AppendFooter(table.Row{footer})
	}

	fmt.Fprintln(c.out, tbl.Render())
}

// Bold renders s in bold.
func Bold(s string) string {
	return styleBold.Sprint(s)
}

// Accent renders s highlighted.
func Accent(s string) string {
	return styleAccent.Sprint(s)
}

// Dim renders s faint.
func Dim(s string) string {
	return styleDim.Sprint(s)
}

// Title renders s as a heading.
func Title(s string) string {
	return styleTitle.Sprint(s)
}
