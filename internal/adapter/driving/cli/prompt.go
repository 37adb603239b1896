package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads secrets such as master passwords from the operator.
type Prompter interface {
	ReadSecret(prompt string) (string, error)
}

// LinePrompter reads one line per secret from r. It is used when stdin is not
// a terminal, for example when secrets are piped in.
type LinePrompter struct {
	lines *bufio.Reader
	out   io.Writer
}

// NewLinePrompter creates a LinePrompter reading from r and printing prompts to out.
func NewLinePrompter(r io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{lines: bufio.NewReader(r), out: out}
}

// ReadSecret prints prompt and returns the next line without its line ending.
func (p *LinePrompter) ReadSecret(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.out, prompt)

	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// TerminalPrompter reads secrets without echo when in is a terminal and falls
// back to line reads otherwise.
type TerminalPrompter struct {
	in *os.File
	*LinePrompter
}

// NewTerminalPrompter creates a TerminalPrompter over in, printing prompts to out.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, LinePrompter: NewLinePrompter(in, out)}
}

// ReadSecret prints prompt and reads a secret.
func (p *TerminalPrompter) ReadSecret(prompt string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.LinePrompter.ReadSecret(prompt)
	}

	_, _ = fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	defer clear(b)

	return string(b), nil
}
