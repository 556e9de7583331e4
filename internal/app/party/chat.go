// internal/app/party/chat.go
package party

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/reelsync/watchparty/internal/app/system/sanitize"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrEmptyMessage means a chat post contained nothing after
// sanitization.
var ErrEmptyMessage = errors.New("message is empty")

// MaxMessageLen caps a single chat message.
const MaxMessageLen = 1000

// Channel is the append-only ordered chat log scoped to one party,
// interleaving user posts and system-generated entries. There is no
// edit, delete, or dedup: duplicate rapid submissions produce duplicate
// entries.
type Channel struct {
	store ChatStore
	log   *zap.Logger
}

// NewChannel constructs a chat Channel over the given store.
func NewChannel(store ChatStore, logger *zap.Logger) *Channel {
	return &Channel{store: store, log: logger}
}

// Post appends a user chat message. The text is sanitized to plain text
// first; a message that is empty afterwards is rejected.
func (c *Channel) Post(ctx context.Context, partyID primitive.ObjectID, sender Identity, text string) (models.ChatMessage, error) {
	clean := sanitize.Text(text)
	if clean == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	if len(clean) > MaxMessageLen {
		// Back up to a rune boundary so the cut never stores a split
		// multi-byte character.
		cut := MaxMessageLen
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = clean[:cut]
	}

	msg := models.ChatMessage{
		PartyID:     partyID,
		SenderEmail: sender.Email,
		SenderName:  sender.Name,
		MessageType: models.MessageChat,
		Text:        clean,
		CreatedAt:   time.Now().UTC(),
	}
	out, err := c.store.Append(ctx, msg)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return out, nil
}

// System appends a system-generated entry (joins, leaves, playback
// toggles, party end). It is best-effort: a failed system post after a
// successful state mutation must never fail the mutation, so errors are
// logged and swallowed.
func (c *Channel) System(ctx context.Context, partyID primitive.ObjectID, text string) {
	msg := models.ChatMessage{
		PartyID:     partyID,
		SenderEmail: models.SystemSender,
		SenderName:  models.SystemSender,
		MessageType: models.MessageSystem,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := c.store.Append(ctx, msg); err != nil {
		c.log.Warn("system chat post failed",
			zap.String("party_id", partyID.Hex()),
			zap.String("text", text),
			zap.Error(err))
	}
}

// Since returns all messages for the party with Seq greater than seq,
// in sequence order. Readers track the highest Seq they have rendered
// and poll with it on each tick.
func (c *Channel) Since(ctx context.Context, partyID primitive.ObjectID, seq int64) ([]models.ChatMessage, error) {
	msgs, err := c.store.ListSince(ctx, partyID, seq)
	if err != nil {
		return nil, fmt.Errorf("list chat since %d: %w", seq, err)
	}
	return msgs, nil
}

// History returns the most recent messages for the party, capped at
// limit, in sequence order.
func (c *Channel) History(ctx context.Context, partyID primitive.ObjectID, limit int64) ([]models.ChatMessage, error) {
	msgs, err := c.store.ListByParty(ctx, partyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	return msgs, nil
}
