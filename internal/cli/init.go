package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/trackerhub/internal/paths"
	"github.com/mesh-intelligence/trackerhub/pkg/trackerhub"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Create the configuration directory and a default config.yaml with a fresh\n" +
			"encryption secret, then open the storage backend once. Existing files are kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

func runInit(cmd *cobra.Command, opts *rootOptions) error {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	dataDir := ""
	if opts.dataDir != "" {
		if dataDir, err = filepath.Abs(opts.dataDir); err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}
	configPath := paths.ConfigFile(configDir)
	created, err := writeConfigIfMissing(configPath, dataDir)
	if err != nil {
		return err
	}

	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	st, err := trackerhub.Open(cfg.Store, nil)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := st.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "Tracker Hub initialized (%s backend, data in %s)\n", cfg.Store.Backend, cfg.Store.DataDir)
	return nil
}
