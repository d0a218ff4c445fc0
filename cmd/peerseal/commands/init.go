package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"peerseal/internal/keystore"
	"peerseal/internal/services/identity"
)

func initCmd() *cobra.Command {
	var (
		oneTime int
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the device key and identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if passphrase != "" && !wire.Keys.DeviceKeyExists() {
				if err := keystore.CheckPassphrase(passphrase); err != nil {
					return err
				}
			}
			if _, err := wire.Identity.Load(ctx); err == nil && !force {
				return fmt.Errorf("identity already exists in %s (use --force to replace it)", wire.Config.Home)
			} else if err != nil && !errors.Is(err, identity.ErrNoIdentity) {
				return err
			}
			if !cmd.Flags().Changed("one-time") {
				oneTime = wire.Config.OneTimePreKeys
			}

			keys, fp, err := wire.Identity.Generate(ctx, oneTime)
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Join(wire.Config.Home, "config.yaml")); os.IsNotExist(err) {
				if err := wire.Config.Save(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity created.\n")
			fmt.Fprintf(out, "Fingerprint: %s\n", fp)
			fmt.Fprintf(out, "Public key:  %s\n", encodeKey(keys.IdentityKeyPair.Public))
			return nil
		},
	}
	cmd.Flags().IntVar(&oneTime, "one-time", 0, "number of one-time pre-keys to generate (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
