package safetynumber_test

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strings"
	"testing"

	"peerseal/internal/verify/safetynumber"
)

var groupsRE = regexp.MustCompile(`^\d{12}( \d{12}){4}$`)

func key(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func TestGenerateSymmetricAndDeterministic(t *testing.T) {
	ab := safetynumber.Generate("alice", key(1), "bob", key(2))
	ba := safetynumber.Generate("bob", key(2), "alice", key(1))
	if ab != ba {
		t.Fatalf("not symmetric:\n%s\n%s", ab, ba)
	}
	if again := safetynumber.Generate("alice", key(1), "bob", key(2)); again != ab {
		t.Fatalf("not deterministic")
	}
	if !groupsRE.MatchString(ab) {
		t.Fatalf("bad shape: %q", ab)
	}
	if n := len(strings.ReplaceAll(ab, " ", "")); n != safetynumber.Digits {
		t.Fatalf("digits = %d", n)
	}
}

func TestGenerateSensitive(t *testing.T) {
	base := safetynumber.Generate("alice", key(1), "bob", key(2))
	for name, got := range map[string]string{
		"key a": safetynumber.Generate("alice", key(3), "bob", key(2)),
		"key b": safetynumber.Generate("alice", key(1), "bob", key(4)),
		"id a":  safetynumber.Generate("alicia", key(1), "bob", key(2)),
		"id b":  safetynumber.Generate("alice", key(1), "rob", key(2)),
	} {
		if got == base {
			t.Errorf("%s: output unchanged", name)
		}
	}
}

func TestCompare(t *testing.T) {
	if !safetynumber.Compare("1234 5678", "12345678") {
		t.Fatal("whitespace should be ignored")
	}
	if !safetynumber.Compare(" 12\n34\t", "1234") {
		t.Fatal("all whitespace kinds should be ignored")
	}
	if safetynumber.Compare("1234", "1235") {
		t.Fatal("different digits compared equal")
	}
}

func TestFormat(t *testing.T) {
	sn := safetynumber.Generate("alice", key(1), "bob", key(2))
	lines := strings.Split(safetynumber.Format(sn), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	for _, l := range lines {
		if len(strings.Fields(l)) != 4 {
			t.Fatalf("line %q", l)
		}
	}
	if !safetynumber.Compare(safetynumber.Format(sn), sn) {
		t.Fatal("formatting changed digits")
	}
}

func TestQRRoundTrip(t *testing.T) {
	payload, err := safetynumber.GenerateQRCodeData("alice", key(1), "bob", key(2))
	if err != nil {
		t.Fatalf("GenerateQRCodeData: %v", err)
	}

	res := safetynumber.VerifyQRCodeData(payload, "alice", key(1))
	if res.Status != safetynumber.Valid {
		t.Fatalf("status = %v", res.Status)
	}
	if res.RemoteIdentifier != "alice" || !bytes.Equal(res.RemotePublicKey, key(1)) {
		t.Fatalf("remote = %q %x", res.RemoteIdentifier, res.RemotePublicKey)
	}
	if res.SafetyNumber != safetynumber.Generate("bob", key(2), "alice", key(1)) {
		t.Fatal("embedded safety number differs")
	}

	if got := safetynumber.VerifyQRCodeDataFor(payload, "bob", key(2), "alice", key(1)); got.Status != safetynumber.Valid {
		t.Fatalf("strict status = %v", got.Status)
	}
	if got := safetynumber.VerifyQRCodeDataFor(payload, "carol", key(3), "alice", key(1)); got.Status != safetynumber.Mismatch {
		t.Fatalf("strict foreign status = %v", got.Status)
	}
}

func TestQRMismatch(t *testing.T) {
	payload, err := safetynumber.GenerateQRCodeData("alice", key(1), "bob", key(2))
	if err != nil {
		t.Fatal(err)
	}
	if res := safetynumber.VerifyQRCodeData(payload, "mallory", key(1)); res.Status != safetynumber.Mismatch {
		t.Fatalf("id: status = %v", res.Status)
	}
	if res := safetynumber.VerifyQRCodeData(payload, "alice", key(9)); res.Status != safetynumber.Mismatch {
		t.Fatalf("key: status = %v", res.Status)
	}
	if res := safetynumber.VerifyQRCodeData(payload, "mallory", key(9)); res.RemoteIdentifier != "" {
		t.Fatal("mismatch should not carry remote fields")
	}
}

func TestQRInvalid(t *testing.T) {
	for _, p := range []string{
		"",
		"!!!not base64!!!",
		base64.RawURLEncoding.EncodeToString([]byte("plain text")),
	} {
		if res := safetynumber.VerifyQRCodeData(p, "alice", key(1)); res.Status != safetynumber.Invalid {
			t.Errorf("%q: status = %v", p, res.Status)
		}
	}
	if safetynumber.Invalid.String() != "invalid" || safetynumber.Valid.String() != "valid" {
		t.Fatal("status strings")
	}
}
