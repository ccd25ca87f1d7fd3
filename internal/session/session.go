package session

import (
	"time"

	"github.com/google/uuid"
)

// Roles a Turn can carry. The Gemini API calls the assistant side "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is a single message in a conversation, user or model.
// Its text is never modified after creation.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTurn builds a user-role turn stamped now.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// ModelTurn builds a model-role turn stamped now.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text, Timestamp: time.Now()}
}

// Session identifies one chat run: an id, a start time, and the model it
// talks to. The transcript itself lives with the chat that owns it.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Model     string    `json:"model"`
}

// New creates a session record for the given model.
func New(model string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Model:     model,
	}
}
