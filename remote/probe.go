package remote

import (
	"context"
	"errors"
	"time"

	"subgate/config"
)

// ProbeResult is the connection-test report shown on the configure page.
type ProbeResult struct {
	OK        bool         `json:"ok"`
	ElapsedMs int64        `json:"elapsedMs"`
	Base      string       `json:"base,omitempty"`
	Count     int          `json:"count,omitempty"`
	Sample    []ProbeEntry `json:"sample,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type ProbeEntry struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
}

// Probe connects to the source and lists its base directory once, bounded
// by the connection-test budget. It reports rather than fails: errors and
// timeouts come back inside the result.
func Probe(ctx context.Context, src Source) ProbeResult {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, config.ConnTestTimeout)
	defer cancel()

	conn, err := src.Connect(ctx)
	if err != nil {
		return probeError(started, ctx, err)
	}
	defer conn.Close()

	// Abort the in-flight listing if the budget fires first.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	base := src.BaseRef()
	entries, err := conn.List(ctx, base)
	if err != nil {
		return probeError(started, ctx, err)
	}

	sample := make([]ProbeEntry, 0, 5)
	for _, e := range entries {
		if len(sample) == 5 {
			break
		}
		sample = append(sample, ProbeEntry{Name: e.Name, Dir: e.IsDir})
	}
	return ProbeResult{
		OK:        true,
		ElapsedMs: time.Since(started).Milliseconds(),
		Base:      base,
		Count:     len(entries),
		Sample:    sample,
	}
}

func probeError(started time.Time, ctx context.Context, err error) ProbeResult {
	msg := err.Error()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg = "timeout"
	}
	return ProbeResult{
		OK:        false,
		ElapsedMs: time.Since(started).Milliseconds(),
		Error:     msg,
	}
}
