package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"peerseal/internal/app"
	"peerseal/internal/logging"
)

const passphraseEnv = "PEERSEAL_PASSPHRASE"

var (
	home       string
	passphrase string
	backend    string
	logLevel   string

	wire *app.Wire
)

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return execute(ctx, newRootCmd())
}

// execute runs root and releases the dependency graph afterwards, whether or
// not the subcommand failed.
func execute(ctx context.Context, root *cobra.Command) error {
	defer closeWire()
	return root.ExecuteContext(ctx)
}

func closeWire() {
	if wire == nil {
		return
	}
	_ = wire.Log.Sync()
	_ = wire.Close()
	wire = nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "peerseal",
		Short:        "Double-ratchet session keys, sealed storage and safety numbers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".peerseal")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}
			cfg.Passphrase = passphrase
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			log, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg, log)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.peerseal)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase sealing the device key (or $"+passphraseEnv+")")
	root.PersistentFlags().StringVar(&backend, "backend", app.BackendFile, "storage backend: file, sqlite or redis")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		initCmd(),
		identityCmd(),
		safetyNumberCmd(),
		verifyQRCmd(),
		compareCmd(),
		sessionFingerprintCmd(),
		sessionsCmd(),
		selftestCmd(),
	)
	return root
}
