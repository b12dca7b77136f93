package encoder

import (
	"io"
	"sync"
)

// pipeWriter feeds an ffmpeg input from its own goroutine so a stalled input
// never blocks writes to the other one. Writes are queued without bound.
type pipeWriter struct {
	w io.WriteCloser

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	err    error
	done   chan struct{}
}

func newPipeWriter(w io.WriteCloser) *pipeWriter {
	p := &pipeWriter{w: w, done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

func (p *pipeWriter) Write(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return io.ErrClosedPipe
	}
	p.queue = append(p.queue, b)
	p.cond.Signal()
	return nil
}

// Close waits for the queue to drain and closes the underlying writer.
func (p *pipeWriter) Close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Signal()
	p.mu.Unlock()

	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pipeWriter) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed && p.err == nil {
			p.cond.Wait()
		}
		if len(p.queue) == 0 || p.err != nil {
			p.mu.Unlock()
			if err := p.w.Close(); err != nil {
				p.setErr(err)
			}
			return
		}
		b := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if _, err := p.w.Write(b); err != nil {
			p.setErr(err)
		}
	}
}

func (p *pipeWriter) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
	p.queue = nil
}
