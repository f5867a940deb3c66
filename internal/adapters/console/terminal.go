package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal hands out input lines one at a time to whoever asks next, so
// the command loop and permission prompts can share one reader.
type Terminal struct {
	lines chan string
	done  chan struct{}
	err   error

	mu  sync.Mutex
	out io.Writer
}

// NewTerminal starts reading lines from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		lines: make(chan string),
		done:  make(chan struct{}),
		out:   out,
	}
	go t.scan(in)
	return t
}

func (t *Terminal) scan(in io.Reader) {
	defer close(t.done)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		t.lines <- strings.TrimSpace(sc.Text())
	}
	t.err = sc.Err()
}

// ReadLine returns the next trimmed input line. It returns io.EOF once the
// input is exhausted.
func (t *Terminal) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-t.lines:
		return line, nil
	case <-t.done:
		if t.err != nil {
			return "", t.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prompt writes question and reads the answer.
func (t *Terminal) Prompt(ctx context.Context, question string) (string, error) {
	t.Printf("%s", question)
	return t.ReadLine(ctx)
}

// Printf writes formatted output.
func (t *Terminal) Printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// Write implements io.Writer so other console adapters can share the output.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}
