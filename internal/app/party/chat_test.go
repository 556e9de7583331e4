package party_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/domain/models"
)

func TestChannel_Post(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	msg, err := e.channel.Post(ctx, p.ID, guest, "hello everyone")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if msg.Seq != 1 {
		t.Errorf("first message seq: got %d, want 1", msg.Seq)
	}
	if msg.SenderEmail != guest.Email || msg.SenderName != guest.Name {
		t.Errorf("sender: got %q/%q", msg.SenderEmail, msg.SenderName)
	}
	if msg.MessageType != models.MessageChat {
		t.Errorf("message type: got %q, want chat", msg.MessageType)
	}
}

func TestChannel_Post_Sanitizes(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	msg, err := e.channel.Post(ctx, p.ID, guest, `<script>alert("x")</script>what a twist`)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if strings.Contains(msg.Text, "<") || strings.Contains(msg.Text, "script") {
		t.Errorf("markup survived sanitization: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "what a twist") {
		t.Errorf("plain text lost in sanitization: %q", msg.Text)
	}
}

func TestChannel_Post_EmptyAfterSanitize(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	for _, raw := range []string{"", "   ", "<b></b>"} {
		_, err := e.channel.Post(ctx, p.ID, guest, raw)
		if !errors.Is(err, party.ErrEmptyMessage) {
			t.Errorf("Post(%q): expected ErrEmptyMessage, got %v", raw, err)
		}
	}
}

func TestChannel_Post_TruncatesLongMessage(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	msg, err := e.channel.Post(ctx, p.ID, guest, strings.Repeat("a", party.MaxMessageLen+500))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if len(msg.Text) != party.MaxMessageLen {
		t.Errorf("message length: got %d, want %d", len(msg.Text), party.MaxMessageLen)
	}
}

func TestChannel_Post_TruncatesOnRuneBoundary(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	// Three-byte runes that do not divide the cap evenly force the cut
	// to land mid-rune unless it backs up to a boundary.
	msg, err := e.channel.Post(ctx, p.ID, guest, strings.Repeat("语", party.MaxMessageLen))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if len(msg.Text) > party.MaxMessageLen {
		t.Errorf("message length: got %d, want at most %d", len(msg.Text), party.MaxMessageLen)
	}
	if !utf8.ValidString(msg.Text) {
		t.Error("truncation stored invalid UTF-8")
	}
}

func TestChannel_SeqOrderingAndSince(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := e.channel.Post(ctx, p.ID, guest, text); err != nil {
			t.Fatalf("Post(%q) failed: %v", text, err)
		}
	}

	all, err := e.channel.History(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("history length: got %d, want 4", len(all))
	}
	for i, m := range all {
		if m.Seq != int64(i+1) {
			t.Errorf("message %d seq: got %d, want %d", i, m.Seq, i+1)
		}
	}

	// An incremental poll from seq 2 returns only the later messages.
	since, err := e.channel.Since(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("since length: got %d, want 2", len(since))
	}
	if since[0].Text != "three" || since[1].Text != "four" {
		t.Errorf("since contents: got %q, %q", since[0].Text, since[1].Text)
	}
}

func TestChannel_SeqIsolatedPerParty(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p1 := e.createParty(t, party.CreateInput{})
	p2 := e.createParty(t, party.CreateInput{})

	if _, err := e.channel.Post(ctx, p1.ID, guest, "in one"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if _, err := e.channel.Post(ctx, p1.ID, guest, "still in one"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	msg, err := e.channel.Post(ctx, p2.ID, guest, "in two")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if msg.Seq != 1 {
		t.Errorf("second party first seq: got %d, want 1", msg.Seq)
	}
}

func TestChannel_SystemInterleaved(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	if _, err := e.channel.Post(ctx, p.ID, guest, "before"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	e.channel.System(ctx, p.ID, "something happened")
	if _, err := e.channel.Post(ctx, p.ID, guest, "after"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	all, err := e.channel.History(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("history length: got %d, want 3", len(all))
	}
	if !all[1].IsSystem() || all[1].SenderEmail != models.SystemSender {
		t.Errorf("middle entry should be the system message, got %+v", all[1])
	}
	if all[0].Seq >= all[1].Seq || all[1].Seq >= all[2].Seq {
		t.Error("system messages must share the party's sequence ordering")
	}
}

func TestChannel_HistoryLimit(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		if _, err := e.channel.Post(ctx, p.ID, guest, text); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}

	recent, err := e.channel.History(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("limited history length: got %d, want 2", len(recent))
	}
	if recent[0].Text != "four" || recent[1].Text != "five" {
		t.Errorf("limited history must be the most recent in order, got %q, %q", recent[0].Text, recent[1].Text)
	}
}
