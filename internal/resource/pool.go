package resource

import (
	"fmt"
	"log/slog"
	"sync"
)

// Usage is a point-in-time view of one kind's accounting.
type Usage struct {
	Allocated float64 `json:"allocated"`
	Total     float64 `json:"total"`
}

// Available returns the unreserved capacity.
func (u Usage) Available() float64 {
	if u.Allocated >= u.Total {
		return 0
	}
	return u.Total - u.Allocated
}

// Pool tracks reserved capacity per kind against fixed limits.
//
// Invariant: 0 <= allocated[k] <= limits[k].HardCap for every kind. allocated
// only grows through TryReserve and only shrinks through Release.
type Pool struct {
	mu        sync.Mutex
	limits    Limits
	allocated map[Kind]float64
	logger    *slog.Logger
}

// NewPool creates a Pool with nothing allocated.
func NewPool(limits Limits, logger *slog.Logger) (*Pool, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	owned := make(Limits, len(limits))
	for k, v := range limits {
		owned[k] = v
	}

	return &Pool{
		limits:    owned,
		allocated: make(map[Kind]float64, len(Kinds)),
		logger:    logger.With("component", "resource_pool"),
	}, nil
}

// ExceedsCeiling reports whether any amount in req is larger than that kind's
// per-task ceiling. It does not look at current load. Unknown kinds always
// exceed since no capacity exists for them.
func (p *Pool) ExceedsCeiling(req Requirement) bool {
	for k, v := range req {
		lim, ok := p.limits[k]
		if !ok {
			return true
		}
		if v > lim.Ceiling+epsilon {
			return true
		}
	}
	return false
}

// TryReserve commits req if every kind fits under its hard cap. Nothing is
// committed when any kind does not fit.
func (p *Pool) TryReserve(req Requirement) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range req {
		if v < 0 {
			return false
		}
		lim, ok := p.limits[k]
		if !ok {
			return false
		}
		if p.allocated[k]+v > lim.HardCap+epsilon {
			return false
		}
	}

	for k, v := range req {
		if v == 0 {
			continue
		}
		p.allocated[k] += v
	}
	return true
}

// Release returns req to the pool. Releasing more than is allocated clamps the
// kind at zero and logs the inconsistency.
func (p *Pool) Release(req Requirement) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range req {
		if v <= 0 {
			continue
		}
		current := p.allocated[k]
		if v > current+epsilon {
			p.logger.Error("resource release exceeds allocation, clamping to zero",
				"kind", k,
				"allocated", current,
				"released", v)
		}
		next := current - v
		if next < epsilon {
			next = 0
		}
		p.allocated[k] = next
	}
}

// Snapshot returns the allocated and total amount for every kind.
func (p *Pool) Snapshot() map[Kind]Usage {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[Kind]Usage, len(Kinds))
	for _, k := range Kinds {
		out[k] = Usage{Allocated: p.allocated[k], Total: p.limits[k].HardCap}
	}
	return out
}

// Allocated returns the currently reserved amount of k.
func (p *Pool) Allocated(k Kind) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated[k]
}

// Limits returns a copy of the configured limits.
func (p *Pool) Limits() Limits {
	out := make(Limits, len(p.limits))
	for k, v := range p.limits {
		out[k] = v
	}
	return out
}

// String implements fmt.Stringer for log output.
func (p *Pool) String() string {
	snap := p.Snapshot()
	return fmt.Sprintf("cpu=%g/%g memory=%g/%g gpu=%g/%g",
		snap[CPU].Allocated, snap[CPU].Total,
		snap[Memory].Allocated, snap[Memory].Total,
		snap[GPU].Allocated, snap[GPU].Total)
}
