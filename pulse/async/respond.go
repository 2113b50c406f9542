package async

import (
	"fmt"
	"io"
	"sync"
)

// Responder receives control-channel response lines.
type Responder interface {
	Respond(line string)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(line string)

func (f ResponderFunc) Respond(line string) { f(line) }

// LineWriter writes each response as one line to w.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineWriter wraps w, typically os.Stdout.
func NewLineWriter(w io.Writer) *LineWriter { return &LineWriter{w: w} }

func (l *LineWriter) Respond(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, line)
}

// Broadcast fans a response out to several responders.
type Broadcast []Responder

func (b Broadcast) Respond(line string) {
	for _, r := range b {
		if r != nil {
			r.Respond(line)
		}
	}
}
