package kmain

import (
	"context"
	"io"
	"time"
)

// pacedReader hands out one byte per read, delaying each by delay, the way a
// typist would.
type pacedReader struct {
	ctx   context.Context
	r     io.Reader
	delay time.Duration
}

func (p *pacedReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, err := p.r.Read(b[:1])
	if n > 0 && p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-p.ctx.Done():
		}
	}
	return n, err
}
