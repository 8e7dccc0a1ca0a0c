package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

var errNoAddress = errors.New("no address")

type systemSource struct {
	resolver *net.Resolver
}

// NewSystemSource returns a HostSource backed by gopsutil and the
// system resolver.
func NewSystemSource() HostSource {
	return &systemSource{resolver: net.DefaultResolver}
}

func (s *systemSource) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("no cpu percentage reported")
	}
	return percents[0], nil
}

func (s *systemSource) Memory(ctx context.Context) (MemoryStat, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, err
	}
	return MemoryStat{Used: vm.Used, Total: vm.Total}, nil
}

func (s *systemSource) Host(ctx context.Context) (HostStat, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostStat{}, err
	}
	return HostStat{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		BootTime:        time.Unix(int64(info.BootTime), 0),
	}, nil
}

// LookupIP prefers the first IPv4 address, like a gethostbyname lookup,
// and falls back to the first address of any family.
func (s *systemSource) LookupIP(ctx context.Context, hostname string) (string, error) {
	addrs, err := s.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s: %w", hostname, errNoAddress)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}
