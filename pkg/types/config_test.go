package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mongo", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid file config",
			config:  Config{Backend: "file", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "postgres without dsn",
			config:  Config{Backend: "postgres"},
			wantErr: ErrDSNRequired,
		},
		{
			name:    "postgres with dsn",
			config:  Config{Backend: "postgres", DSN: "postgres://localhost/tracker"},
			wantErr: nil,
		},
		{
			name:    "slot with path separator",
			config:  Config{Backend: "memory", Slot: "../escape"},
			wantErr: ErrSlotInvalid,
		},
		{
			name:    "negative latency",
			config:  Config{Backend: "memory", Latency: -time.Millisecond},
			wantErr: ErrLatencyInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Backend: BackendMemory}.WithDefaults()
	if cfg.Slot != DefaultSlot {
		t.Errorf("expected slot %q, got %q", DefaultSlot, cfg.Slot)
	}
	if cfg.UserID != DefaultUserID {
		t.Errorf("expected user id %q, got %q", DefaultUserID, cfg.UserID)
	}

	custom := Config{Backend: BackendMemory, Slot: "other", UserID: "u1"}.WithDefaults()
	if custom.Slot != "other" || custom.UserID != "u1" {
		t.Errorf("defaults must not override explicit values, got %+v", custom)
	}
}
