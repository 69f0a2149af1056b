package session

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Input delivers lines typed by the user. Reading happens in one goroutine
// for the life of the program so that loops can wait on input and on
// background results at the same time.
type Input struct {
	lines chan string
}

// NewInput starts reading r. The goroutine exits at end of input.
func NewInput(r io.Reader) *Input {
	in := &Input{lines: make(chan string, 64)}
	go func() {
		defer close(in.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			in.lines <- strings.TrimRight(scanner.Text(), "\r")
		}
	}()
	return in
}

// Lines exposes the raw channel for select loops. It is closed at end of
// input.
func (in *Input) Lines() <-chan string {
	return in.lines
}

// ReadLine waits for the next line. It returns io.EOF at end of input.
func (in *Input) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-in.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
