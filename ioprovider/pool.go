package ioprovider

import (
	"context"
	"os"

	"github.com/NebulousLabs/threadgroup"
)

// job is a single queued ReadAt/WriteAt request.
type job struct {
	write bool
	f     *os.File
	p     []byte
	off   int64
	done  chan jobResult
}

type jobResult struct {
	n   int
	err error
}

// Pool is a bounded-concurrency Provider: at most width jobs run at once,
// queued on a shared channel, so a migration with many in-flight WRITE RPCs
// cannot spawn unbounded goroutines against the filesystem.
type Pool struct {
	jobs chan job
	tg   threadgroup.ThreadGroup
}

// NewPool starts width worker goroutines and returns a Pool ready to serve
// ReadAt/WriteAt calls. A width below 1 is treated as 1.
func NewPool(width int) *Pool {
	if width < 1 {
		width = 1
	}
	p := &Pool{
		jobs: make(chan job, width),
	}
	for i := 0; i < width; i++ {
		if err := p.tg.Add(); err != nil {
			break
		}
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.tg.Done()
	for {
		select {
		case j := <-p.jobs:
			var n int
			var err error
			if j.write {
				n, err = j.f.WriteAt(j.p, j.off)
			} else {
				n, err = j.f.ReadAt(j.p, j.off)
			}
			j.done <- jobResult{n, err}
		case <-p.tg.StopChan():
			return
		}
	}
}

func (p *Pool) ReadAt(ctx context.Context, f *os.File, buf []byte, off int64) (int, error) {
	return p.submit(ctx, job{write: false, f: f, p: buf, off: off})
}

func (p *Pool) WriteAt(ctx context.Context, f *os.File, buf []byte, off int64) (int, error) {
	return p.submit(ctx, job{write: true, f: f, p: buf, off: off})
}

func (p *Pool) submit(ctx context.Context, j job) (int, error) {
	j.done = make(chan jobResult, 1)
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.tg.StopChan():
		return 0, context.Canceled
	}
	select {
	case r := <-j.done:
		return r.n, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Close() error {
	return p.tg.Stop()
}
