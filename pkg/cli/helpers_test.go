package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jguan/hostmon/pkg/infra/broker"
	"github.com/jguan/hostmon/pkg/snapshot"
)

// isolateEnv clears every variable the config layer reads and points the
// journal into a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_VHOST", "RABBITMQ_USER", "RABBITMQ_PASS",
		"HOSTMON_QUEUE", "HOSTMON_INTERVAL", "HOSTMON_JOURNAL", "HOSTMON_LOG_LEVEL",
		"HOSTMON_LOG_FORMAT", "HOSTMON_CONFIG", "USER",
	} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("HOSTMON_JOURNAL_PATH", path)
	return path
}

type stubCollector struct {
	snap snapshot.Snapshot
	err  error
}

func (c *stubCollector) Sample(ctx context.Context) (snapshot.Snapshot, error) {
	return c.snap, c.err
}

func validSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		IP:              "10.0.0.7",
		OperatingSystem: "ubuntu 22.04",
		HostName:        "node-7",
		TimeStamp:       "2024-03-01T12:30:45",
		CPULoad:         "37.5",
		UsedMemory:      2,
		TotalMemory:     8,
		UserName:        "monitor",
		UpTime:          "2 days, 0:00:00",
	}
}

type stubDialer struct {
	mu     sync.Mutex
	err    error
	dials  int
	bodies [][]byte
	queues []string
}

func (d *stubDialer) Dial(ctx context.Context, p broker.Params) (broker.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return stubConn{d}, nil
}

type stubConn struct{ d *stubDialer }

func (c stubConn) Channel() (broker.Channel, error) { return stubChannel(c), nil }
func (c stubConn) Close() error                     { return nil }

type stubChannel struct{ d *stubDialer }

func (c stubChannel) DeclareQueue(name string) error { return nil }
func (c stubChannel) Close() error                   { return nil }

func (c stubChannel) Publish(ctx context.Context, queue string, body []byte) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.queues = append(c.d.queues, queue)
	c.d.bodies = append(c.d.bodies, body)
	return nil
}

var errUnreachable = &broker.ConnectionError{Addr: "localhost:5672", Err: errors.New("connection refused")}

// execute runs the command line against a fresh root and returns stdout.
func execute(t *testing.T, root *RootCommand, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	root.SetOutputWriter(out)
	root.SetErrorWriter(&bytes.Buffer{})
	root.Command().SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
