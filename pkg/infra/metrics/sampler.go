package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jguan/hostmon/pkg/infra/clock"
	"github.com/jguan/hostmon/pkg/snapshot"
)

const (
	// DefaultCPUWindow is the busy/idle sampling window.
	DefaultCPUWindow = time.Second
	// UnknownUser is reported when no user name is configured.
	UnknownUser = "unknown"
)

var _ Collector = (*Sampler)(nil)

// Sampler builds snapshots from a HostSource. A Sample call either
// returns a complete snapshot or an error, never a partial one.
type Sampler struct {
	source    HostSource
	clock     clock.Clock
	userName  string
	cpuWindow time.Duration
}

type Option func(*Sampler)

func WithSource(src HostSource) Option {
	return func(s *Sampler) {
		if src != nil {
			s.source = src
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Sampler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithUserName sets the reported user; empty keeps UnknownUser.
func WithUserName(name string) Option {
	return func(s *Sampler) {
		if strings.TrimSpace(name) != "" {
			s.userName = name
		}
	}
}

func WithCPUWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.cpuWindow = d
		}
	}
}

func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		source:    NewSystemSource(),
		clock:     clock.Real(),
		userName:  UnknownUser,
		cpuWindow: DefaultCPUWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sampler) Sample(ctx context.Context) (snapshot.Snapshot, error) {
	hs, err := s.source.Host(ctx)
	if err != nil {
		return snapshot.Snapshot{}, &SampleError{Op: "host info", Err: err}
	}
	if hs.Hostname == "" {
		return snapshot.Snapshot{}, &SampleError{Op: "host info", Err: errors.New("empty host name")}
	}

	ip, err := s.source.LookupIP(ctx, hs.Hostname)
	if err != nil {
		return snapshot.Snapshot{}, &SampleError{Op: "resolve host name", Err: err}
	}

	// TimeStamp is taken before the CPU window.
	now := s.clock.Now()

	cpuPercent, err := s.source.CPUPercent(ctx, s.cpuWindow)
	if err != nil {
		return snapshot.Snapshot{}, &SampleError{Op: "cpu", Err: err}
	}

	ms, err := s.source.Memory(ctx)
	if err != nil {
		return snapshot.Snapshot{}, &SampleError{Op: "memory", Err: err}
	}

	snap := snapshot.Snapshot{
		IP:              ip,
		OperatingSystem: operatingSystem(hs),
		HostName:        hs.Hostname,
		TimeStamp:       snapshot.FormatTimeStamp(now),
		CPULoad:         snapshot.FormatCPULoad(cpuPercent),
		UsedMemory:      snapshot.BytesToGiB(ms.Used),
		TotalMemory:     snapshot.BytesToGiB(ms.Total),
		UserName:        s.userName,
		UpTime:          snapshot.FormatUptime(s.clock.Now().Sub(hs.BootTime)),
	}
	if err := snap.Validate(); err != nil {
		return snapshot.Snapshot{}, &SampleError{Op: "validate", Err: err}
	}
	return snap, nil
}

func operatingSystem(hs HostStat) string {
	name := strings.TrimSpace(strings.Join([]string{hs.Platform, hs.PlatformVersion}, " "))
	if name == "" {
		return hs.OS
	}
	return name
}
