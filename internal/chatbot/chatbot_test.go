package chatbot

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rj-price/gemini-api/internal/config"
	"github.com/rj-price/gemini-api/internal/gemini"
	"github.com/rj-price/gemini-api/internal/session"
)

// newTestBot wires a ChatBot to a stub model server and scripted operator
// input, bypassing telemetry setup.
func newTestBot(t *testing.T, handler http.Handler, input string) (*ChatBot, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gemini.NewClientWithHTTPClient(server.Client(), server.URL, "test-key", "")
	out := &bytes.Buffer{}
	cb := &ChatBot{
		config:   config.Default(),
		sess:     session.New(client.Model()),
		chat:     client.StartChat(nil),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdown: func() {},
		in:       strings.NewReader(input),
		out:      out,
	}
	return cb, out
}

func stubReply(t *testing.T, text string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{{
				Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func TestRun_QuitTerminatesWithoutSending(t *testing.T) {
	var calls int
	cb, out := newTestBot(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}), "quit\n")

	require.NoError(t, cb.Run())

	assert.Equal(t, 0, calls)
	assert.Contains(t, out.String(), "Ending chat.")
}

func TestRun_QuitIsCaseInsensitive(t *testing.T) {
	for _, input := range []string{"QUIT\n", "Quit\n", "qUiT\n"} {
		var calls int
		cb, out := newTestBot(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}), input)

		require.NoError(t, cb.Run())
		assert.Equal(t, 0, calls, "input %q must terminate without a send", input)
		assert.Contains(t, out.String(), "Ending chat.")
	}
}

func TestRun_PaddedQuitIsASendAttempt(t *testing.T) {
	// Termination requires the line to equal "quit" exactly (ignoring
	// case); surrounding whitespace makes it an ordinary message.
	var calls int
	var sent string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req gemini.GenerateContentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Contents) > 0 && len(req.Contents[len(req.Contents)-1].Parts) > 0 {
			sent = req.Contents[len(req.Contents)-1].Parts[0].Text
		}
		stubReply(t, "ok").ServeHTTP(w, r)
	})
	cb, _ := newTestBot(t, handler, "  quit  \nquit\n")

	require.NoError(t, cb.Run())

	assert.Equal(t, 1, calls)
	assert.Equal(t, "  quit  ", sent, "the raw line is what gets sent")
}

func TestRun_LongLineIsSentNotFatal(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		stubReply(t, "ok").ServeHTTP(w, r)
	})
	long := strings.Repeat("a", 100*1024) // past bufio.Scanner's 64KB default
	cb, _ := newTestBot(t, handler, long+"\nquit\n")

	require.NoError(t, cb.Run())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, cb.chat.Len())
}

func TestRun_SendsAndPrintsReply(t *testing.T) {
	cb, out := newTestBot(t, stubReply(t, "STUB_RESPONSE"), "hello there\nquit\n")

	require.NoError(t, cb.Run())

	assert.Contains(t, out.String(), "Gemini: STUB_RESPONSE")
	assert.Equal(t, 2, cb.chat.Len())
}

func TestRun_EmptyLineIsASendAttempt(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		stubReply(t, "ok").ServeHTTP(w, r)
	})
	cb, _ := newTestBot(t, handler, "\nquit\n")

	require.NoError(t, cb.Run())

	assert.Equal(t, 1, calls)
}

func TestRun_ErrorIsReportedAndLoopContinues(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"status":"INTERNAL","message":"boom"}}`))
			return
		}
		stubReply(t, "recovered").ServeHTTP(w, r)
	})
	cb, out := newTestBot(t, handler, "first\nsecond\nquit\n")

	require.NoError(t, cb.Run())

	assert.Equal(t, 2, calls)
	assert.Contains(t, out.String(), "An error occurred:")
	assert.Contains(t, out.String(), "Gemini: recovered")
	assert.Equal(t, 2, cb.chat.Len(), "only the successful exchange is in the transcript")
}

func TestRun_MalformedReplyDoesNotCrashLoop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	cb, out := newTestBot(t, handler, "hello\nquit\n")

	require.NoError(t, cb.Run())

	assert.Contains(t, out.String(), "An error occurred:")
	assert.Contains(t, out.String(), "Ending chat.")
	assert.Equal(t, 0, cb.chat.Len())
}

func TestRun_EOFEndsLoop(t *testing.T) {
	cb, _ := newTestBot(t, stubReply(t, "ok"), "")

	require.NoError(t, cb.Run())
}
