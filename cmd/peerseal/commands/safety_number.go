package commands

import (
	"fmt"
	"io"

	qrterminal "github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"peerseal/internal/verify/safetynumber"
)

// safetyNumberCmd prints the code both parties read to each other. The local
// identifier is whatever name the peer knows us by.
func safetyNumberCmd() *cobra.Command {
	var (
		qr     bool
		selfID string
	)
	cmd := &cobra.Command{
		Use:   "safety-number <peer-id> <peer-key>",
		Short: "Print the safety number shared with a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerID := args[0]
			peerKey, err := parsePeerKey(args[1])
			if err != nil {
				return err
			}
			keys, err := wire.Identity.Load(cmd.Context())
			if err != nil {
				return err
			}
			self := keys.IdentityKeyPair.Public
			out := cmd.OutOrStdout()

			if !qr {
				printSafetyNumber(out, safetynumber.Generate(selfID, self.Slice(), peerID, peerKey.Slice()))
				return nil
			}
			payload, err := safetynumber.GenerateQRCodeData(selfID, self.Slice(), peerID, peerKey.Slice())
			if err != nil {
				return err
			}
			qrterminal.GenerateWithConfig(payload, qrterminal.Config{
				Level:     qrterminal.L,
				Writer:    out,
				BlackChar: qrterminal.BLACK,
				WhiteChar: qrterminal.WHITE,
				QuietZone: 1,
			})
			fmt.Fprintf(out, "\n%s\n", payload)
			return nil
		},
	}
	cmd.Flags().StringVar(&selfID, "self-id", "", "identifier the peer knows you by (required)")
	cmd.Flags().BoolVar(&qr, "qr", false, "render a QR code for the peer to scan")
	_ = cmd.MarkFlagRequired("self-id")
	return cmd
}

func verifyQRCmd() *cobra.Command {
	var selfID string
	cmd := &cobra.Command{
		Use:   "verify-qr <payload> <peer-id> <peer-key>",
		Short: "Check a scanned QR payload against the key you expect from a peer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerKey, err := parsePeerKey(args[2])
			if err != nil {
				return err
			}

			var res safetynumber.QRResult
			if selfID != "" {
				keys, err := wire.Identity.Load(cmd.Context())
				if err != nil {
					return err
				}
				res = safetynumber.VerifyQRCodeDataFor(args[0], selfID, keys.IdentityKeyPair.Public.Slice(), args[1], peerKey.Slice())
			} else {
				res = safetynumber.VerifyQRCodeData(args[0], args[1], peerKey.Slice())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Result: %s\n", res.Status)
			if res.Status != safetynumber.Valid {
				return fmt.Errorf("qr verification failed: %s", res.Status)
			}
			fmt.Fprintf(out, "Peer:   %s\n", res.RemoteIdentifier)
			printSafetyNumber(out, res.SafetyNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&selfID, "self-id", "", "also check the embedded safety number against your identity")
	return cmd
}

// printSafetyNumber writes the canonical form on one line, then the grouped
// form for reading aloud.
func printSafetyNumber(w io.Writer, sn string) {
	fmt.Fprintln(w, sn)
	fmt.Fprintln(w)
	fmt.Fprintln(w, safetynumber.Format(sn))
}

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <safety-number> <safety-number>",
		Short: "Compare two safety numbers ignoring spacing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !safetynumber.Compare(args[0], args[1]) {
				fmt.Fprintln(cmd.OutOrStdout(), "MISMATCH")
				return fmt.Errorf("safety numbers differ")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "MATCH")
			return nil
		},
	}
}
