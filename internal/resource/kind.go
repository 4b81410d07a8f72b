package resource

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind identifies a resource dimension.
type Kind string

// Supported resource kinds. CPU and GPU are measured in percentage points,
// Memory in megabytes.
const (
	CPU    Kind = "cpu"
	Memory Kind = "memory"
	GPU    Kind = "gpu"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{CPU, Memory, GPU}

// Common errors returned by the resource package
var (
	ErrUnknownKind    = errors.New("unknown resource kind")
	ErrNegativeAmount = errors.New("resource amount cannot be negative")
	ErrNonFinite      = errors.New("resource amount must be finite")
	ErrInvalidLimit   = errors.New("invalid resource limit")
)

// epsilon absorbs float drift from repeated reserve/release cycles.
const epsilon = 1e-9

// Unit returns the unit the kind is measured in.
func (k Kind) Unit() string {
	switch k {
	case CPU, GPU:
		return "percent"
	case Memory:
		return "MB"
	default:
		return ""
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case CPU, Memory, GPU:
		return true
	default:
		return false
	}
}

// ParseKind converts a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Requirement maps a kind to the amount a task needs. Absent kinds mean zero.
type Requirement map[Kind]float64

// Get returns the amount required for k, zero when absent.
func (r Requirement) Get(k Kind) float64 {
	if r == nil {
		return 0
	}
	return r[k]
}

// Clone returns an independent copy of r.
func (r Requirement) Clone() Requirement {
	out := make(Requirement, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Validate checks that every entry names a known kind with a finite,
// non-negative amount.
func (r Requirement) Validate() error {
	for k, v := range r {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%g", ErrNonFinite, k, v)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s=%g", ErrNegativeAmount, k, v)
		}
	}
	return nil
}

// String renders the requirement in Kinds order, e.g. "cpu=20 memory=768".
func (r Requirement) String() string {
	parts := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		if v, ok := r[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%g", k, v))
		}
	}
	return strings.Join(parts, " ")
}

// Limit is the fixed capacity configuration for one kind.
type Limit struct {
	// HardCap is the total capacity shared by all running tasks.
	HardCap float64 `json:"hard_cap"`

	// Ceiling is the most a single task may request. Always <= HardCap.
	Ceiling float64 `json:"ceiling"`
}

// Limits holds the Limit for every kind.
type Limits map[Kind]Limit

// DefaultLimits returns the stock capacity table.
func DefaultLimits() Limits {
	return Limits{
		CPU:    {HardCap: 100, Ceiling: 100},
		Memory: {HardCap: 8192, Ceiling: 4096},
		GPU:    {HardCap: 100, Ceiling: 100},
	}
}

// Validate checks that every kind has a positive cap and a ceiling within it.
func (l Limits) Validate() error {
	for _, k := range Kinds {
		lim, ok := l[k]
		if !ok {
			return fmt.Errorf("%w: missing limit for %s", ErrInvalidLimit, k)
		}
		if lim.HardCap <= 0 {
			return fmt.Errorf("%w: %s hard cap must be positive", ErrInvalidLimit, k)
		}
		if lim.Ceiling <= 0 || lim.Ceiling > lim.HardCap {
			return fmt.Errorf("%w: %s ceiling %g must be in (0, %g]", ErrInvalidLimit, k, lim.Ceiling, lim.HardCap)
		}
	}
	for k := range l {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
		}
	}
	return nil
}
