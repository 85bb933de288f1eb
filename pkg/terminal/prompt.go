package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when the input ends before an answer.
var ErrNoInput = errors.New("no answer on input")

// Prompter asks the operator for decisions.
type Prompter interface {
	Confirm(question string, def bool) (bool, error)
	Ask(question string) (string, error)
}

// LinePrompter reads answers line by line.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}

		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. An empty answer selects def.
func (p *LinePrompter) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		fmt.Fprintf(p.out, "%s %s: ", question, hint)

		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		fmt.Fprintln(p.out, "Error: invalid input")
	}
}

// Ask reads a non-empty answer.
func (p *LinePrompter) Ask(question string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", question)

		answer, err := p.readLine()
		if err != nil {
			return "", err
		}

		if answer != "" {
			return answer, nil
		}
	}
}

// AutoPrompter answers every question without reading input.
type AutoPrompter struct {
	Yes    bool
	Answer string
}

// Confirm returns Yes.
func (a AutoPrompter) Confirm(string, bool) (bool, error) {
	return a.Yes, nil
}

// Ask returns Answer, or ErrNoInput when it is empty.
func (a AutoPrompter) Ask(string) (string, error) {
	if a.Answer == "" {
		return "", ErrNoInput
	}

	return a.Answer, nil
}
