package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func identityCmd() *cobra.Command {
	var (
		rotate    bool
		replenish int
	)
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Print the local identity, optionally rotating or replenishing pre-keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if rotate {
				spk, err := wire.Identity.RotateSignedPreKey(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Signed pre-key rotated: %s\n", encodeKey(spk.Public))
			}
			if replenish > 0 {
				n, err := wire.Identity.Replenish(ctx, replenish)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %d one-time pre-keys.\n", n)
			}

			keys, err := wire.Identity.Load(ctx)
			if err != nil {
				return err
			}
			fp, err := wire.Identity.Fingerprint(ctx)
			if err != nil {
				return err
			}
			pool, err := wire.Store.ReadOneTimePreKeys(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Fingerprint:    %s\n", fp)
			fmt.Fprintf(out, "Identity key:   %s\n", encodeKey(keys.IdentityKeyPair.Public))
			fmt.Fprintf(out, "Signed pre-key: %s (rotated %s)\n",
				encodeKey(keys.SignedPreKeyPair.Public), keys.LastRotated.Format(time.RFC3339))
			fmt.Fprintf(out, "One-time keys:  %d\n", len(pool))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rotate, "rotate", false, "rotate the signed pre-key first")
	cmd.Flags().IntVar(&replenish, "replenish", 0, "top the one-time pre-key pool up to this many")
	return cmd
}
