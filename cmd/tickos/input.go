package main

import (
	"io"
	"sync"
)

// hostInput owns the host reader for the life of the process. Each boot reads
// through its own session; closing a session hands the remaining input to the
// next boot.
type hostInput struct {
	bytes chan byte
}

func newHostInput(r io.Reader) *hostInput {
	h := &hostInput{bytes: make(chan byte, 64)}
	go h.pump(r)
	return h
}

func (h *hostInput) pump(r io.Reader) {
	defer close(h.bytes)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			h.bytes <- b
		}
		if err != nil {
			return
		}
	}
}

func (h *hostInput) session() *inputSession {
	return &inputSession{h: h, done: make(chan struct{})}
}

type inputSession struct {
	h    *hostInput
	done chan struct{}
	once sync.Once
}

// Read blocks for at least one byte and returns io.EOF once the host input
// ends or the session is closed.
func (s *inputSession) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-s.done:
		return 0, io.EOF
	default:
	}
	select {
	case <-s.done:
		return 0, io.EOF
	case b, ok := <-s.h.bytes:
		if !ok {
			return 0, io.EOF
		}
		p[0] = b
	}
	n := 1
	for n < len(p) {
		select {
		case b, ok := <-s.h.bytes:
			if !ok {
				return n, nil
			}
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (s *inputSession) Close() {
	s.once.Do(func() { close(s.done) })
}
