package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/auth"
	"github.com/mesh-intelligence/trackerhub/internal/client"
	"github.com/mesh-intelligence/trackerhub/internal/integrations"
	"github.com/mesh-intelligence/trackerhub/internal/logger"
	"github.com/mesh-intelligence/trackerhub/internal/ratelimit"
	"github.com/mesh-intelligence/trackerhub/internal/vault"
	"github.com/mesh-intelligence/trackerhub/pkg/trackerhub"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// app is the wired application shared by the commands.
type app struct {
	cfg          settings
	log          *zap.Logger
	store        types.Store
	client       *client.Client
	identity     *auth.Service
	integrations *integrations.Service
}

func openApp(cfg settings) (*app, error) {
	lg := logger.New()
	if err := lg.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	log := lg.Log

	st, err := trackerhub.Open(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	var v *vault.Vault
	if cfg.Secret != "" {
		v, err = vault.New(cfg.Secret, vault.WithLogger(log))
		if err != nil {
			st.Detach()
			return nil, err
		}
	} else {
		log.Warn("no secret configured, field encryption disabled")
	}

	users, err := st.Table(types.TableUsers)
	if err != nil {
		st.Detach()
		return nil, fmt.Errorf("open users table: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		client: client.New(st, ratelimit.New(), v, client.Options{
			MaxRequests:     cfg.MaxRequests,
			Window:          cfg.Window,
			UserID:          cfg.Store.UserID,
			EncryptedFields: cfg.EncryptedFields,
			RichFields:      cfg.RichFields,
			Logger:          log,
		}),
		identity:     auth.New(users, cfg.User, auth.WithLogger(log)),
		integrations: integrations.New(log),
	}, nil
}

// Close detaches the store and flushes the logger.
func (a *app) Close() error {
	_ = a.log.Sync()
	return a.store.Detach()
}
