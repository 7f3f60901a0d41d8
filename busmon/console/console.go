package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/beevik/prefixtree"
	"golang.org/x/term"

	"github.com/valerio/go-busmon/busmon/monitor"
)

// Prompt is shown before every command line.
const Prompt = ">> "

// Console reads command lines from a port and runs them on a monitor.
type Console struct {
	in     *lineReader
	term   *term.Terminal
	mon    *monitor.Monitor
	cmds   *prefixtree.Tree
	last   string
	logger *slog.Logger
}

// New wraps port in a line editor. Attach a monitor before calling Run.
func New(port Port) *Console {
	in := newLineReader(port)
	return &Console{
		in: in,
		term: term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{in, port}, Prompt),
		logger: slog.Default(),
	}
}

// Writer returns the console output. Line feeds become CR LF.
func (c *Console) Writer() io.Writer {
	return c.term
}

// Attach routes commands to mon, indexing its command names for prefix
// matching.
func (c *Console) Attach(mon *monitor.Monitor) {
	c.mon = mon
	c.cmds = prefixtree.New()
	for _, cmd := range mon.Commands() {
		c.cmds.Add(cmd.Name, cmd.ID)
	}
}

// Run processes command lines until the port reaches end of input.
func (c *Console) Run() error {
	if c.mon == nil {
		return errors.New("console has no monitor attached")
	}
	for {
		line, err := c.term.ReadLine()
		if errors.Is(err, io.EOF) {
			c.logger.Debug("Console input closed")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
		c.Dispatch(line)
	}
}

// Dispatch runs one command line. An empty line repeats the previous one.
// The command word is the leading run of lower case letters and may be
// abbreviated to any unique prefix.
func (c *Console) Dispatch(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		if c.last == "" {
			return
		}
		line = c.last
		fmt.Fprintf(c.term, "%s\n", line)
	}
	c.last = line

	n := 0
	for n < len(line) && line[n] >= 'a' && line[n] <= 'z' {
		n++
	}
	word, args := line[:n], line[n:]

	v, err := c.cmds.Find(word)
	switch {
	case word == "" || errors.Is(err, prefixtree.ErrPrefixNotFound):
		fmt.Fprintf(c.term, "Unknown command %s\n", line)
		return
	case errors.Is(err, prefixtree.ErrPrefixAmbiguous):
		fmt.Fprintf(c.term, "Ambiguous command %s\n", word)
		return
	case err != nil:
		fmt.Fprintf(c.term, "%v\n", err)
		return
	}

	id := v.(monitor.CommandID)
	if err := c.mon.Execute(id, args); err != nil {
		// the monitor has already reported it
		c.logger.Debug("Command failed", "cmd", id, "error", err)
	}
}

// Pending reports an unread keystroke, including one typed ahead of the
// running command. The controller polls it to stop a free run.
func (c *Console) Pending() bool {
	return c.in.Pending()
}

// Discard drops the keystroke that interrupted a free run.
func (c *Console) Discard() {
	c.in.Discard()
}
