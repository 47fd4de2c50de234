package cli

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/trackerhub/internal/client"
	"github.com/mesh-intelligence/trackerhub/internal/finance"
	"github.com/mesh-intelligence/trackerhub/internal/session"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "TRACKERHUB"
)

// Configuration keys.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyDSN            = "dsn"
	cfgKeySlot           = "slot"
	cfgKeyLatency        = "latency"
	cfgKeyLogLevel       = "log_level"
	cfgKeyUserID         = "user.id"
	cfgKeyUserEmail      = "user.email"
	cfgKeyUserName       = "user.display_name"
	cfgKeySecret         = "secret"
	cfgKeyMaxRequests    = "rate_limit.max_requests"
	cfgKeyWindow         = "rate_limit.window"
	cfgKeySessionTimeout = "session.timeout"
	cfgKeyListen         = "listen"
	cfgKeyCurrency       = "currency"
	cfgKeyEncrypted      = "encrypted_fields"
	cfgKeyRich           = "rich_fields"
)

const (
	defaultBackend     = types.BackendSQLite
	defaultLogLevel    = "warn"
	defaultListen      = "127.0.0.1:8080"
	defaultUserEmail   = "local-user@trackerhub.local"
	defaultDisplayName = "Local User"
)

var (
	defaultEncryptedFields = map[string][]string{
		types.TableMentalStates: {"notes"},
		types.TableTransactions: {"notes"},
	}
	defaultRichFields = map[string][]string{
		types.TableTasks:       {"description"},
		types.TableVisionItems: {"description"},
	}
)

// settings is the resolved configuration for one command run.
type settings struct {
	Store           types.Config
	LogLevel        string
	User            types.User
	Secret          string
	MaxRequests     int
	Window          time.Duration
	SessionTimeout  time.Duration
	Listen          string
	Currency        string
	EncryptedFields map[string][]string
	RichFields      map[string][]string
}

// configFile is the layout written to config.yaml by init.
type configFile struct {
	Backend         string              `yaml:"backend"`
	DataDir         string              `yaml:"data_dir,omitempty"`
	Slot            string              `yaml:"slot"`
	LogLevel        string              `yaml:"log_level"`
	Secret          string              `yaml:"secret"`
	Listen          string              `yaml:"listen"`
	Currency        string              `yaml:"currency"`
	User            userConfig          `yaml:"user"`
	RateLimit       rateLimitConfig     `yaml:"rate_limit"`
	Session         sessionConfig       `yaml:"session"`
	EncryptedFields map[string][]string `yaml:"encrypted_fields"`
	RichFields      map[string][]string `yaml:"rich_fields"`
}

type userConfig struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
}

type rateLimitConfig struct {
	MaxRequests int    `yaml:"max_requests"`
	Window      string `yaml:"window"`
}

type sessionConfig struct {
	Timeout string `yaml:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeySlot, types.DefaultSlot)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyUserID, types.DefaultUserID)
	v.SetDefault(cfgKeyUserEmail, defaultUserEmail)
	v.SetDefault(cfgKeyUserName, defaultDisplayName)
	v.SetDefault(cfgKeyMaxRequests, client.DefaultMaxRequests)
	v.SetDefault(cfgKeyWindow, client.DefaultWindow)
	v.SetDefault(cfgKeySessionTimeout, session.DefaultTimeout)
	v.SetDefault(cfgKeyListen, defaultListen)
	v.SetDefault(cfgKeyCurrency, finance.DefaultCurrency)
	v.SetDefault(cfgKeyEncrypted, defaultEncryptedFields)
	v.SetDefault(cfgKeyRich, defaultRichFields)
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults and TRACKERHUB_* environment variables still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// readSettings extracts settings from v. dataDir is already resolved.
func readSettings(v *viper.Viper, dataDir string) settings {
	userID := v.GetString(cfgKeyUserID)
	return settings{
		Store: types.Config{
			Backend: v.GetString(cfgKeyBackend),
			DataDir: dataDir,
			DSN:     v.GetString(cfgKeyDSN),
			Slot:    v.GetString(cfgKeySlot),
			UserID:  userID,
			Latency: v.GetDuration(cfgKeyLatency),
		},
		LogLevel: v.GetString(cfgKeyLogLevel),
		User: types.User{
			ID:          userID,
			Email:       v.GetString(cfgKeyUserEmail),
			DisplayName: v.GetString(cfgKeyUserName),
		},
		Secret:          v.GetString(cfgKeySecret),
		MaxRequests:     v.GetInt(cfgKeyMaxRequests),
		Window:          v.GetDuration(cfgKeyWindow),
		SessionTimeout:  v.GetDuration(cfgKeySessionTimeout),
		Listen:          v.GetString(cfgKeyListen),
		Currency:        v.GetString(cfgKeyCurrency),
		EncryptedFields: v.GetStringMapStringSlice(cfgKeyEncrypted),
		RichFields:      v.GetStringMapStringSlice(cfgKeyRich),
	}
}

// writeConfigIfMissing creates config.yaml with defaults and a fresh secret.
// An existing file is left alone. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return false, err
	}
	cfg := configFile{
		Backend:  defaultBackend,
		DataDir:  dataDir,
		Slot:     types.DefaultSlot,
		LogLevel: defaultLogLevel,
		Secret:   secret,
		Listen:   defaultListen,
		Currency: finance.DefaultCurrency,
		User: userConfig{
			ID:          types.DefaultUserID,
			Email:       defaultUserEmail,
			DisplayName: defaultDisplayName,
		},
		RateLimit: rateLimitConfig{
			MaxRequests: client.DefaultMaxRequests,
			Window:      client.DefaultWindow.String(),
		},
		Session:         sessionConfig{Timeout: session.DefaultTimeout.String()},
		EncryptedFields: defaultEncryptedFields,
		RichFields:      defaultRichFields,
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
