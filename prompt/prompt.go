// Package prompt asks the user to pick one option from a list.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var ErrNotInteractive = errors.New("input is not a terminal")

type Chooser interface {
	Choose(ctx context.Context, message string, options []string) (string, error)
}

// ListChooser prints a numbered list and reads the choice as a line from In.
// Invalid answers are re-asked until In runs out or ctx is done.
type ListChooser struct {
	In  io.Reader
	Out io.Writer
}

func NewTerminalChooser() *ListChooser {
	return &ListChooser{
		In:  os.Stdin,
		Out: os.Stderr,
	}
}

func (lc *ListChooser) Choose(ctx context.Context, message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("nothing to choose from")
	}
	if f, ok := lc.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return "", fmt.Errorf("%w, choose one of: %s", ErrNotInteractive, strings.Join(options, ", "))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintln(lc.Out, message)
	for idx, option := range options {
		fmt.Fprintf(lc.Out, "  %d) %s\n", idx+1, option)
	}

	// The read blocks until a line arrives, so it runs on its own goroutine.
	// On cancel the goroutine stays parked in Read until In is closed or the
	// process exits.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(lc.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		readErr <- err
	}()

	for {
		fmt.Fprintf(lc.Out, "Choice [1-%d]: ", len(options))

		var answer string
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-readErr:
			return "", err
		case line := <-lines:
			answer = strings.TrimSpace(line)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		// typing the name works too
		for _, option := range options {
			if option == answer {
				return option, nil
			}
		}
		fmt.Fprintf(lc.Out, "'%s' is not one of the options\n", answer)
	}
}
