package pagination

import (
	"fmt"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// Defaults for a Manager built from a zero Config.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Direction selects which way a cursor page moves.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// SortOrder is the order applied to SortBy.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Params are the caller supplied paging parameters.
type Params struct {
	Limit        int       `json:"limit,omitempty" yaml:"limit"`
	Offset       int       `json:"offset,omitempty" yaml:"offset"`
	Cursor       string    `json:"cursor,omitempty" yaml:"cursor"`
	Direction    Direction `json:"direction,omitempty" yaml:"direction"`
	SortBy       string    `json:"sortBy,omitempty" yaml:"sortBy"`
	SortOrder    SortOrder `json:"sortOrder,omitempty" yaml:"sortOrder"`
	IncludeTotal bool      `json:"includeTotal,omitempty" yaml:"includeTotal"`
}

// Config sets the limits a Manager enforces.
type Config struct {
	// DefaultLimit applies when Params.Limit is zero. Default: 50
	DefaultLimit int `yaml:"defaultLimit"`
	// MaxLimit caps Params.Limit. Default: 1000
	MaxLimit int `yaml:"maxLimit"`
}

// Manager paginates in-memory collections. It holds no state beyond its
// limits and is safe for concurrent use.
type Manager struct {
	defaultLimit int
	maxLimit     int
}

// NewManager creates a Manager. Zero fields take their defaults and a
// DefaultLimit above MaxLimit is lowered to MaxLimit.
func NewManager(cfg Config) *Manager {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	return &Manager{defaultLimit: cfg.DefaultLimit, maxLimit: cfg.MaxLimit}
}

// DefaultLimit returns the limit used when none is given.
func (m *Manager) DefaultLimit() int { return m.defaultLimit }

// MaxLimit returns the largest accepted limit.
func (m *Manager) MaxLimit() int { return m.maxLimit }

// ValidateParams normalizes p. A zero limit becomes the default, other
// limits are clamped into [1, MaxLimit] and a negative offset becomes 0.
// Empty Direction and SortOrder default to forward and asc; any other
// unknown value is a ValidationError.
func (m *Manager) ValidateParams(p Params) (Params, error) {
	switch {
	case p.Limit == 0:
		p.Limit = m.defaultLimit
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > m.maxLimit:
		p.Limit = m.maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	switch p.Direction {
	case "":
		p.Direction = Forward
	case Forward, Backward:
	default:
		return p, fault.NewValidationError(
			fmt.Sprintf("invalid direction %q: must be forward or backward", p.Direction),
			map[string]any{"direction": string(p.Direction)},
		)
	}

	switch p.SortOrder {
	case "":
		p.SortOrder = Asc
	case Asc, Desc:
	default:
		return p, fault.NewValidationError(
			fmt.Sprintf("invalid sortOrder %q: must be asc or desc", p.SortOrder),
			map[string]any{"sortOrder": string(p.SortOrder)},
		)
	}
	return p, nil
}
