package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peerseal/internal/app"
	"peerseal/internal/domain"
	"peerseal/internal/protocol/ratchet"
	"peerseal/internal/protocol/x3dh"
	"peerseal/internal/verify/safetynumber"
)

// selftestCmd runs a full handshake and exchange between two throwaway
// parties using the configured backend type and ratchet limits. Nothing
// under --home is touched.
func selftestCmd() *cobra.Command {
	var messages int
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run a local two-party handshake and message exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if messages < 3 {
				messages = 3
			}
			return runSelftest(cmd.Context(), cmd.OutOrStdout(), wire.Config, wire.Log, messages)
		},
	}
	cmd.Flags().IntVar(&messages, "messages", 5, "messages to send each way")
	return cmd
}

func runSelftest(ctx context.Context, out io.Writer, base app.Config, log *zap.Logger, messages int) error {
	alice, cleanupA, err := tempWire(base, log, "alice")
	if err != nil {
		return err
	}
	defer cleanupA()
	bob, cleanupB, err := tempWire(base, log, "bob")
	if err != nil {
		return err
	}
	defer cleanupB()

	step := func(name string, err error) error {
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
			return fmt.Errorf("selftest: %s: %w", name, err)
		}
		fmt.Fprintf(out, "ok   %s\n", name)
		return nil
	}

	aliceKeys, _, err := alice.Identity.Generate(ctx, 0)
	if err := step("alice identity", err); err != nil {
		return err
	}
	bobKeys, _, err := bob.Identity.Generate(ctx, 1)
	if err := step("bob identity", err); err != nil {
		return err
	}

	// Handshake.
	bundle, err := bob.Identity.Bundle(ctx)
	if err := step("bob bundle", err); err != nil {
		return err
	}
	rootA, initial, err := x3dh.InitiatorRoot(aliceKeys.IdentityKeyPair, bundle)
	if err := step("x3dh initiator", err); err != nil {
		return err
	}
	ad := append(aliceKeys.IdentityKeyPair.Public.Slice(), bobKeys.IdentityKeyPair.Public.Slice()...)
	stA, err := alice.Engine.InitAsInitiator(rootA, bundle.SignedPreKey)
	if err == nil {
		err = alice.Sessions.Establish(ctx, "bob", stA, ad)
	}
	if err := step("alice session", err); err != nil {
		return err
	}

	type wireMsg struct {
		h  domain.RatchetHeader
		ct []byte
	}
	sealAll := func(from *app.Wire, peer domain.PeerID, n int) ([]wireMsg, error) {
		msgs := make([]wireMsg, 0, n)
		for i := 0; i < n; i++ {
			h, ct, err := from.Sessions.Seal(ctx, peer, []byte(fmt.Sprintf("%s message %d", peer, i)))
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, wireMsg{h, ct})
		}
		return msgs, nil
	}

	toBob, err := sealAll(alice, "bob", messages)
	if err := step(fmt.Sprintf("alice seals %d", messages), err); err != nil {
		return err
	}

	rootB, spk, err := bob.Identity.Accept(ctx, initial)
	if err == nil && !bytes.Equal(rootA, rootB) {
		err = errors.New("root keys differ")
	}
	if err := step("x3dh responder", err); err != nil {
		return err
	}
	stB, err := bob.Engine.InitAsResponder(rootB, spk, toBob[0].h.RatchetKey)
	if err == nil {
		err = bob.Sessions.Establish(ctx, "alice", stB, ad)
	}
	if err := step("bob session", err); err != nil {
		return err
	}

	// Deliver in reverse to exercise the skipped-key cache.
	err = nil
	for i := len(toBob) - 1; i >= 0 && err == nil; i-- {
		_, err = bob.Sessions.Open(ctx, "alice", toBob[i].h, toBob[i].ct)
	}
	if err := step("bob opens out of order", err); err != nil {
		return err
	}
	_, err = bob.Sessions.Open(ctx, "alice", toBob[0].h, toBob[0].ct)
	if errors.Is(err, ratchet.ErrReplayOrUnknown) {
		err = nil
	} else if err == nil {
		err = errors.New("replayed message accepted")
	}
	if err := step("replay rejected", err); err != nil {
		return err
	}

	toAlice, err := sealAll(bob, "alice", messages)
	if err == nil {
		for _, m := range toAlice {
			if _, err = alice.Sessions.Open(ctx, "bob", m.h, m.ct); err != nil {
				break
			}
		}
	}
	if err := step("reply after ratchet step", err); err != nil {
		return err
	}

	snA := safetynumber.Generate("alice", aliceKeys.IdentityKeyPair.Public.Slice(), "bob", bobKeys.IdentityKeyPair.Public.Slice())
	snB := safetynumber.Generate("bob", bobKeys.IdentityKeyPair.Public.Slice(), "alice", aliceKeys.IdentityKeyPair.Public.Slice())
	err = nil
	if !safetynumber.Compare(snA, snB) {
		err = errors.New("safety numbers differ")
	}
	if err := step("safety numbers agree", err); err != nil {
		return err
	}

	fpA, errA := alice.Sessions.Fingerprint(ctx, "bob")
	fpB, errB := bob.Sessions.Fingerprint(ctx, "alice")
	err = errors.Join(errA, errB)
	if err == nil && fpA != fpB {
		err = errors.New("session fingerprints differ")
	}
	if err := step("session fingerprints agree", err); err != nil {
		return err
	}

	fmt.Fprintln(out, "PASS")
	return nil
}

// tempWire builds a Wire like base but rooted in a fresh temporary
// directory. Redis keys are namespaced by name so both parties can share a
// server.
func tempWire(base app.Config, log *zap.Logger, name string) (*app.Wire, func(), error) {
	dir, err := os.MkdirTemp("", "peerseal-selftest-"+name+"-")
	if err != nil {
		return nil, nil, err
	}
	cfg := base
	cfg.Home = dir
	cfg.Passphrase = ""
	cfg.SQLitePath = "selftest.db"
	cfg.Redis.Prefix = fmt.Sprintf("%sselftest:%s:%s:", base.Redis.Prefix, name, dir)

	w, err := app.NewWire(cfg, log.Named(name))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}
	cleanup := func() {
		ctx := context.Background()
		for _, p := range w.Sessions.Peers(ctx) {
			_ = w.Sessions.Close(ctx, p)
		}
		_ = w.Close()
		_ = os.RemoveAll(dir)
	}
	return w, cleanup, nil
}
