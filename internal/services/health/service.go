package health

import (
	"context"
	"time"
)

// Pinger is any backing dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	deps    map[string]Pinger
	timeout time.Duration
}

// NewService constructs a new health service over named dependencies.
func NewService(deps map[string]Pinger) *Service {
	return &Service{deps: deps, timeout: 2 * time.Second}
}

// Status pings every dependency; OK is false if any fails.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true}
	if len(s.deps) == 0 {
		return out
	}
	out.Checks = make(map[string]string, len(s.deps))
	for name, dep := range s.deps {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := dep.Ping(pingCtx)
		cancel()
		if err != nil {
			out.OK = false
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}
	return out
}
