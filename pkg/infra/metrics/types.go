// Package metrics samples host operating metrics into a snapshot.Snapshot.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jguan/hostmon/pkg/snapshot"
)

// Collector produces one complete snapshot per call.
type Collector interface {
	Sample(ctx context.Context) (snapshot.Snapshot, error)
}

// HostSource is the raw host query surface the Sampler formats.
type HostSource interface {
	// CPUPercent blocks for window and returns overall busy percentage.
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	Memory(ctx context.Context) (MemoryStat, error)
	Host(ctx context.Context) (HostStat, error)
	// LookupIP returns the first address the host name resolves to.
	LookupIP(ctx context.Context, hostname string) (string, error)
}

type MemoryStat struct {
	Used  uint64
	Total uint64
}

type HostStat struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	BootTime        time.Time
}

// SampleError reports which host query failed.
type SampleError struct {
	Op  string
	Err error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.Op, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}
