package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"peerseal/internal/crypto"
	"peerseal/internal/domain"
	"peerseal/internal/services/session"
	"peerseal/internal/verify/fingerprint"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List peers with a stored session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, p := range wire.Sessions.Peers(cmd.Context()) {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <peer>",
			Short: "Show counters and cache size of a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, ok := wire.Store.LoadSession(cmd.Context(), domain.PeerID(args[0]))
				if !ok {
					return session.ErrNoSession
				}
				st := sess.State
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Peer:            %s\n", sess.PeerID)
				fmt.Fprintf(out, "Updated:         %s\n", sess.LastUpdated.Format(time.RFC3339))
				fmt.Fprintf(out, "Our ratchet key: %s\n", crypto.Fingerprint(st.SendRatchetKeyPair.Public))
				fmt.Fprintf(out, "Peer ratchet:    %s\n", crypto.Fingerprint(st.ReceiveRatchetKey))
				fmt.Fprintf(out, "Sent:            %d (previous chain %d)\n", st.SendMessageNumber, st.PreviousSendChainLength)
				fmt.Fprintf(out, "Received:        %d\n", st.ReceiveMessageNumber)
				fmt.Fprintf(out, "Skipped keys:    %d\n", len(st.SkippedMessageKeys))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <peer>",
			Short: "Delete a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return wire.Sessions.Close(cmd.Context(), domain.PeerID(args[0]))
			},
		},
	)
	return cmd
}

func sessionFingerprintCmd() *cobra.Command {
	var group int
	cmd := &cobra.Command{
		Use:   "session-fingerprint <peer>",
		Short: "Print the live fingerprint of a session for side-by-side comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := wire.Sessions.Fingerprint(cmd.Context(), domain.PeerID(args[0]))
			if err != nil {
				return err
			}
			grouped, err := fingerprint.Format(fp, group)
			if err != nil {
				return err
			}
			colors, err := fingerprint.GenerateColorFingerprint(fp)
			if err != nil {
				return err
			}
			css := make([]string, len(colors))
			for i, c := range colors {
				css[i] = c.CSS()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fingerprint: %s\n", grouped)
			fmt.Fprintf(out, "Short:       %s\n", fingerprint.GenerateShort(fp))
			fmt.Fprintf(out, "Colors:      %s\n", strings.Join(css, " "))
			return nil
		},
	}
	cmd.Flags().IntVar(&group, "group", 4, "characters per group")
	return cmd
}
