package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/jguan/hostmon/pkg/infra/broker"
	"github.com/jguan/hostmon/pkg/infra/eventbus"
)

var errRefused = errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")

// fakeDialer fails the first failDials dials with a ConnectionError and
// hands out fakeConnections afterwards.
type fakeDialer struct {
	mu         sync.Mutex
	failDials  int
	dials      int
	params     []broker.Params
	conns      []*fakeConnection
	channelErr error
	declareErr error
	publishErr error
	closeErr   error
	onDial     func(attempt int)
}

func (d *fakeDialer) Dial(ctx context.Context, p broker.Params) (broker.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.params = append(d.params, p)
	if d.onDial != nil {
		d.onDial(d.dials)
	}
	if d.dials <= d.failDials {
		return nil, &broker.ConnectionError{Addr: p.Addr(), Err: errRefused}
	}

	conn := &fakeConnection{dialer: d}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) published() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [][]byte
	for _, c := range d.conns {
		if c.ch != nil {
			out = append(out, c.ch.bodies...)
		}
	}
	return out
}

type fakeConnection struct {
	dialer *fakeDialer
	ch     *fakeChannel
	closed int
}

func (c *fakeConnection) Channel() (broker.Channel, error) {
	if c.dialer.channelErr != nil {
		return nil, c.dialer.channelErr
	}
	c.ch = &fakeChannel{dialer: c.dialer}
	return c.ch, nil
}

func (c *fakeConnection) Close() error {
	c.closed++
	return c.dialer.closeErr
}

type fakeChannel struct {
	dialer   *fakeDialer
	declared []string
	queues   []string
	bodies   [][]byte
	closed   int
}

func (c *fakeChannel) DeclareQueue(name string) error {
	c.declared = append(c.declared, name)
	return c.dialer.declareErr
}

func (c *fakeChannel) Publish(ctx context.Context, queue string, body []byte) error {
	if c.dialer.publishErr != nil {
		return c.dialer.publishErr
	}
	c.queues = append(c.queues, queue)
	c.bodies = append(c.bodies, body)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

// recordingPublisher collects published events synchronously.
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.Type())
	return nil
}

func (r *recordingPublisher) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}
