// Package cli implements the trackerhub command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/trackerhub/internal/paths"
	"github.com/mesh-intelligence/trackerhub/pkg/trackerhub"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed command input.
var errUsage = errors.New("invalid usage")

// rootOptions holds the global flag values of one command tree.
type rootOptions struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "trackerhub" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "trackerhub",
		Short: "Local store for habits, tasks, finances and journals",
		Long: "Tracker Hub keeps habits, tasks, finances, mental-state logs and vision boards\n" +
			"in one local snapshot, guarded by rate limiting, field encryption and input sanitization.",
		Version:       trackerhub.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(opts),
		newListCmd(opts),
		newGetCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newDeleteByCmd(opts),
		newBalanceCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trackerhub:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to exitUserError for bad input and missing
// records, exitSysError for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidField),
		errors.Is(err, types.ErrInvalidTable),
		errors.Is(err, types.ErrDuplicateID),
		errors.Is(err, types.ErrRateLimited):
		return exitUserError
	default:
		return exitSysError
	}
}

// settings resolves directories and loads the configuration.
func (o *rootOptions) settings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(o.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}
	dataDir, err := paths.ResolveDataDir(o.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return readSettings(v, dataDir), nil
}

// withApp opens the application for one command and closes it afterwards.
func (o *rootOptions) withApp(fn func(a *app) error) (err error) {
	cfg, err := o.settings()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
