package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/urfave/cli/v2"
)

// terminalConfirmer asks on the terminal before each side effect. Only an
// explicit yes approves; end of input declines.
type terminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalConfirmer(in io.Reader, out io.Writer) *terminalConfirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out}
}

func (t *terminalConfirmer) Confirm(ctx context.Context, p inventory.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(t.out, "%s [y/N]: ", p.Message)

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(t.out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func confirmerFor(c *cli.Context) inventory.Confirmer {
	if c.Bool("yes") {
		return inventory.AutoConfirm
	}
	reader := c.App.Reader
	if reader == nil {
		reader = os.Stdin
	}
	return newTerminalConfirmer(reader, c.App.ErrWriter)
}
