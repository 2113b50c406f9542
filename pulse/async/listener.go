package async

import (
	"bufio"
	"context"
	"io"

	"github.com/teranos/maestro/errors"
)

// maxLineBytes bounds one control line; jsonAdd payloads can be large.
const maxLineBytes = 4 << 20

// Listen reads newline-terminated commands from r (usually stdin) and
// submits them in order. It returns nil at EOF, and never touches the store.
func (p *Processor) Listen(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := p.Submit(ctx, line); err != nil {
			if errors.Is(err, ErrProcessorStopped) {
				return nil
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read control channel")
	}
	return nil
}
