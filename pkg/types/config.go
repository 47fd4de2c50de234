package types

import (
	"errors"
	"regexp"
	"time"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string        `json:"backend" yaml:"backend"`
	DataDir string        `json:"data_dir" yaml:"data_dir"`
	DSN     string        `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Slot    string        `json:"slot,omitempty" yaml:"slot,omitempty"`
	UserID  string        `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Latency time.Duration `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// Supported backend names.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultSlot   = "tracker_hub_db"
	DefaultUserID = "local-user"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDSNRequired    = errors.New("dsn is required for the postgres backend")
	ErrSlotInvalid    = errors.New("slot name is invalid")
	ErrLatencyInvalid = errors.New("latency must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:     true,
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendMemory:   true,
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// WithDefaults returns a copy of c with the slot name and user id filled in.
func (c Config) WithDefaults() Config {
	if c.Slot == "" {
		c.Slot = DefaultSlot
	}
	if c.UserID == "" {
		c.UserID = DefaultUserID
	}
	return c
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DSN == "" {
		return ErrDSNRequired
	}
	if c.Slot != "" && !slotPattern.MatchString(c.Slot) {
		return ErrSlotInvalid
	}
	if c.Latency < 0 {
		return ErrLatencyInvalid
	}
	return nil
}
