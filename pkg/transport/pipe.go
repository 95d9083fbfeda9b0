package transport

import (
	"context"
	"sync"

	"github.com/omm-project/omm-go/pkg/wire"
)

// pipeBuffer is the number of reports queued per direction.
const pipeBuffer = 64

type pipeReport struct {
	id   wire.ReportID
	data []byte
}

// Pipe is an in-memory Transport. Reports sent by the host are delivered to
// the peer's handler; reports injected by the peer are delivered to the host
// handler. Each direction is drained by its own goroutine so handlers may
// send or inject from inside a callback.
//
// A Pipe can be reopened after Close.
type Pipe struct {
	info DeviceInfo

	mu      sync.Mutex
	done    chan struct{}
	toHost  chan pipeReport
	toPeer  chan pipeReport
	openErr error

	handlerMu   sync.RWMutex
	hostHandler ReportHandler
	peerHandler ReportHandler

	peer *PipePeer
}

// PipePeer is the device side of a Pipe.
type PipePeer struct {
	p *Pipe
}

// NewPipe creates a closed pipe describing info.
func NewPipe(info DeviceInfo) *Pipe {
	p := &Pipe{info: info}
	p.peer = &PipePeer{p: p}
	return p
}

// Peer returns the device side of the pipe.
func (p *Pipe) Peer() *PipePeer {
	return p.peer
}

// FailOpen makes subsequent Open calls return err. nil clears it.
func (p *Pipe) FailOpen(err error) {
	p.mu.Lock()
	p.openErr = err
	p.mu.Unlock()
}

// Open starts delivery in both directions.
func (p *Pipe) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openErr != nil {
		return p.openErr
	}
	if p.done != nil {
		return ErrAlreadyOpen
	}

	p.done = make(chan struct{})
	p.toHost = make(chan pipeReport, pipeBuffer)
	p.toPeer = make(chan pipeReport, pipeBuffer)

	go p.pump(p.toHost, p.done, p.host)
	go p.pump(p.toPeer, p.done, p.device)
	return nil
}

// Close stops delivery. Queued reports are dropped.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return nil
	}
	close(p.done)
	p.done = nil
	return nil
}

// IsOpen reports whether the pipe is open.
func (p *Pipe) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Send queues a host-to-device report.
func (p *Pipe) Send(report wire.ReportID, data []byte) error {
	return p.enqueue(func() chan pipeReport { return p.toPeer }, report, data)
}

// SetReportHandler installs the host-side handler.
func (p *Pipe) SetReportHandler(h ReportHandler) {
	p.handlerMu.Lock()
	p.hostHandler = h
	p.handlerMu.Unlock()
}

// Info returns the device description given to NewPipe.
func (p *Pipe) Info() DeviceInfo {
	return p.info
}

// SetReportHandler installs the device-side handler, called for every
// report the host sends.
func (pp *PipePeer) SetReportHandler(h ReportHandler) {
	pp.p.handlerMu.Lock()
	pp.p.peerHandler = h
	pp.p.handlerMu.Unlock()
}

// Inject queues a device-to-host report.
func (pp *PipePeer) Inject(report wire.ReportID, data []byte) error {
	return pp.p.enqueue(func() chan pipeReport { return pp.p.toHost }, report, data)
}

func (p *Pipe) enqueue(queue func() chan pipeReport, report wire.ReportID, data []byte) error {
	p.mu.Lock()
	done := p.done
	var ch chan pipeReport
	if done != nil {
		ch = queue()
	}
	p.mu.Unlock()

	if done == nil {
		return ErrNotOpen
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case ch <- pipeReport{id: report, data: buf}:
		return nil
	case <-done:
		return ErrNotOpen
	}
}

func (p *Pipe) host() ReportHandler {
	p.handlerMu.RLock()
	defer p.handlerMu.RUnlock()
	return p.hostHandler
}

func (p *Pipe) device() ReportHandler {
	p.handlerMu.RLock()
	defer p.handlerMu.RUnlock()
	return p.peerHandler
}

func (p *Pipe) pump(ch <-chan pipeReport, done <-chan struct{}, handler func() ReportHandler) {
	for {
		select {
		case <-done:
			return
		case r := <-ch:
			if h := handler(); h != nil {
				h(r.id, r.data)
			}
		}
	}
}

var _ Transport = (*Pipe)(nil)
