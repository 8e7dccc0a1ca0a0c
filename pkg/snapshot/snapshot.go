// Package snapshot defines the host snapshot record published to the
// monitoring queue and its wire encoding.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeLayout is the local-time layout of Snapshot.TimeStamp.
const TimeLayout = "2006-01-02T15:04:05"

// ErrIncomplete is returned when a snapshot has an empty field.
var ErrIncomplete = errors.New("snapshot incomplete")

// Snapshot is one sampled record of host metrics. Field names are the
// JSON keys consumers read.
type Snapshot struct {
	IP              string    `json:"IP"`
	OperatingSystem string    `json:"OperatingSystem"`
	HostName        string    `json:"HostName"`
	TimeStamp       string    `json:"TimeStamp"`
	CPULoad         string    `json:"CPULoad"`
	UsedMemory      Gibibytes `json:"UsedMemory"`
	TotalMemory     Gibibytes `json:"TotalMemory"`
	UserName        string    `json:"UserName"`
	UpTime          string    `json:"UpTime"`
}

// Validate reports the first string field that is empty.
func (s Snapshot) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"IP", s.IP},
		{"OperatingSystem", s.OperatingSystem},
		{"HostName", s.HostName},
		{"TimeStamp", s.TimeStamp},
		{"CPULoad", s.CPULoad},
		{"UserName", s.UserName},
		{"UpTime", s.UpTime},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is empty", ErrIncomplete, f.name)
		}
	}
	if s.TotalMemory <= 0 {
		return fmt.Errorf("%w: TotalMemory is %v", ErrIncomplete, float64(s.TotalMemory))
	}
	return nil
}

// Encode serializes the snapshot to its JSON wire form.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a JSON wire payload back into a Snapshot.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// Gibibytes is a memory amount in GiB. It always encodes with a decimal
// point so consumers see a float even for whole values.
type Gibibytes float64

const bytesPerGiB = 1024 * 1024 * 1024

// BytesToGiB converts a byte count to Gibibytes.
func BytesToGiB(b uint64) Gibibytes {
	return Gibibytes(float64(b) / bytesPerGiB)
}

func (g Gibibytes) MarshalJSON() ([]byte, error) {
	f := float64(g)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported memory value: %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

func (g *Gibibytes) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*g = Gibibytes(f)
	return nil
}
