package gemini

import (
	"context"

	"github.com/rj-price/gemini-api/internal/session"
)

// ResponseCache stores generated replies keyed by the full ordered
// transcript that produced them. Implemented by the cache package.
type ResponseCache interface {
	Get(turns []session.Turn) (string, bool)
	Put(turns []session.Turn, response string) error
}

// Chat couples one Client to one ordered transcript. Every send
// transmits the full transcript plus the new user turn; that ordering is
// the only mechanism providing conversational context. A Chat is driven
// by a single goroutine, one request in flight at a time.
type Chat struct {
	client *Client
	turns  []session.Turn
	cache  ResponseCache
}

// StartChat opens a conversation, optionally pre-seeded with prior turns.
// The seed is copied; the caller's slice is not retained.
func (c *Client) StartChat(seed []session.Turn) *Chat {
	turns := make([]session.Turn, len(seed))
	copy(turns, seed)
	return &Chat{client: c, turns: turns}
}

// SetCache attaches a response cache consulted before each outbound call.
func (ch *Chat) SetCache(cache ResponseCache) {
	ch.cache = cache
}

// History returns a copy of the transcript in append order.
func (ch *Chat) History() []session.Turn {
	out := make([]session.Turn, len(ch.turns))
	copy(out, ch.turns)
	return out
}

// Len reports the number of turns in the transcript.
func (ch *Chat) Len() int {
	return len(ch.turns)
}

// SendMessage sends the transcript plus one new user turn and returns the
// model's reply. On success the user turn and the model turn are appended,
// in that order. On failure the transcript is left exactly as it was, so
// the caller can retry the same message without a dangling user turn.
func (ch *Chat) SendMessage(ctx context.Context, userText string) (string, error) {
	userTurn := session.UserTurn(userText)
	outbound := append(ch.History(), userTurn)

	if ch.cache != nil {
		if cached, ok := ch.cache.Get(outbound); ok {
			ch.turns = append(ch.turns, userTurn, session.ModelTurn(cached))
			return cached, nil
		}
	}

	resp, err := ch.client.generateContent(ctx, outbound)
	if err != nil {
		return "", err
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	if ch.cache != nil {
		if err := ch.cache.Put(outbound, text); err != nil {
			ch.client.logger.Warn("failed to cache response", "error", err)
		}
	}

	ch.turns = append(ch.turns, userTurn, session.ModelTurn(text))
	return text, nil
}
