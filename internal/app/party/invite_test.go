package party_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reelsync/watchparty/internal/app/party"
)

func TestGenerateCode_Format(t *testing.T) {
	code, err := party.GenerateCode("PARTY")
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}

	if !strings.HasPrefix(code, "PARTY-") {
		t.Errorf("expected PARTY- prefix, got %q", code)
	}
	suffix := strings.TrimPrefix(code, "PARTY-")
	if len(suffix) != 6 {
		t.Errorf("expected 6-character suffix, got %q", suffix)
	}
	for _, c := range suffix {
		if strings.ContainsRune("01OIL", c) {
			t.Errorf("suffix contains ambiguous character %q in %q", c, code)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"canonical", "PARTY-7K2Q9X", "PARTY-7K2Q9X"},
		{"lowercase", "party-7k2q9x", "PARTY-7K2Q9X"},
		{"bare suffix", "7k2q9x", "PARTY-7K2Q9X"},
		{"surrounding whitespace", "  PARTY-7K2Q9X  ", "PARTY-7K2Q9X"},
		{"interior whitespace", "PARTY - 7K2Q9X", "PARTY-7K2Q9X"},
		{"empty", "   ", ""},
		{"short bare input kept as-is", "7K2", "7K2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := party.NormalizeCode("PARTY", tc.raw)
			if got != tc.want {
				t.Errorf("NormalizeCode(%q): got %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	got, err := e.resolver.Resolve(ctx, p.InviteCode)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("resolved wrong party: got %s, want %s", got.ID.Hex(), p.ID.Hex())
	}
}

func TestResolver_Resolve_NormalizesInput(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	// Lowercase with whitespace, and the bare suffix without a prefix,
	// must both land on the same party.
	sloppy := "  " + strings.ToLower(p.InviteCode) + " "
	got, err := e.resolver.Resolve(ctx, sloppy)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", sloppy, err)
	}
	if got.ID != p.ID {
		t.Errorf("sloppy input resolved wrong party")
	}

	bare := strings.TrimPrefix(p.InviteCode, "PARTY-")
	got, err = e.resolver.Resolve(ctx, bare)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", bare, err)
	}
	if got.ID != p.ID {
		t.Errorf("bare suffix resolved wrong party")
	}
}

func TestResolver_Resolve_ScanFallback(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	// With the indexed lookup missing every code, resolution must still
	// succeed through the full-scan fallback.
	e.store.IndexLag = true

	got, err := e.resolver.Resolve(ctx, p.InviteCode)
	if err != nil {
		t.Fatalf("Resolve under index lag failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("fallback resolved wrong party")
	}
}

func TestResolver_Resolve_UnknownCode(t *testing.T) {
	e := newEngine(t)

	_, err := e.resolver.Resolve(context.Background(), "PARTY-XXXXXX")
	if !errors.Is(err, party.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_Resolve_EndedParty(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	if err := e.lifecycle.Complete(ctx, p.ID, host, 120); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	_, err := e.resolver.Resolve(ctx, p.InviteCode)
	if !errors.Is(err, party.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for ended party, got %v", err)
	}
}

func TestResolver_Resolve_FullParty(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{MaxParticipants: 2, AutoAdmit: true})

	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	_, err := e.resolver.Resolve(ctx, p.InviteCode)
	if !errors.Is(err, party.ErrPartyFull) {
		t.Fatalf("expected ErrPartyFull, got %v", err)
	}
}
