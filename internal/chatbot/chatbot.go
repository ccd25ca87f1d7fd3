// Package chatbot runs the interactive conversation loop: read a line,
// send it with the accumulated context, print the reply, repeat until the
// operator types "quit".
package chatbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rj-price/gemini-api/internal/cache"
	"github.com/rj-price/gemini-api/internal/config"
	"github.com/rj-price/gemini-api/internal/gemini"
	"github.com/rj-price/gemini-api/internal/session"
	"github.com/rj-price/gemini-api/internal/telemetry"
)

// maxInputBytes caps a single operator line read from stdin.
const maxInputBytes = 1 << 20

// ChatBot drives one chat session over stdin/stdout. Strictly sequential:
// one blocking read and at most one outbound request per cycle.
type ChatBot struct {
	config   config.Config
	sess     *session.Session
	chat     *gemini.Chat
	cache    *cache.Store
	logger   *slog.Logger
	shutdown func()

	in  io.Reader
	out io.Writer
}

// New initializes telemetry, loads the credential, and opens a fresh
// session against the configured model. Credential and configuration
// failures are returned for the caller to report and halt on.
func New(cfg config.Config) (*ChatBot, error) {
	logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	_, _, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	apiKey, err := config.LoadCredential()
	if err != nil {
		shutdown()
		return nil, err
	}

	client := gemini.NewClient(apiKey, cfg.Model)
	if cfg.SystemInstruction != "" {
		client.SetSystemInstruction(cfg.SystemInstruction)
	}

	cb := &ChatBot{
		config:   cfg,
		sess:     session.New(client.Model()),
		chat:     client.StartChat(nil),
		logger:   logger,
		shutdown: shutdown,
		in:       os.Stdin,
		out:      os.Stdout,
	}

	if cfg.CacheEnabled {
		store, err := cache.Open(cfg.CachePath, logger)
		if err != nil {
			logger.Warn("failed to open response cache, continuing without it", "error", err)
		} else {
			cb.cache = store
			cb.chat.SetCache(store)
		}
	}

	logger.Info("created new session", "session_id", cb.sess.ID, "model", cb.sess.Model)
	return cb, nil
}

// Run executes the loop until the operator types "quit" (case-insensitive)
// or input is exhausted. Every other line, empty included, is one send
// attempt; send failures are reported and the loop continues.
func (cb *ChatBot) Run() error {
	defer cb.close()

	fmt.Fprintln(cb.out, "Starting chat with Gemini. Type 'quit' to exit.")

	scanner := bufio.NewScanner(cb.in)
	// Prompts can exceed bufio's 64KB default line limit; only "quit"
	// may end the loop, so give long input room rather than an ErrTooLong.
	scanner.Buffer(make([]byte, 0, 64*1024), maxInputBytes)
	ctx := context.Background()

	for {
		fmt.Fprint(cb.out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		if strings.EqualFold(input, "quit") {
			fmt.Fprintln(cb.out, "Ending chat.")
			break
		}

		fmt.Fprintln(cb.out, "\nGemini thinking...")

		reply, err := cb.chat.SendMessage(ctx, input)
		if err != nil {
			cb.reportError(err)
			continue
		}

		fmt.Fprintf(cb.out, "\nGemini: %s\n\n", reply)
	}

	return scanner.Err()
}

// reportError prints a per-turn failure and classifies it in the log.
// Malformed responses get their own log line since they indicate an
// unexpected payload shape rather than an explicit remote failure.
func (cb *ChatBot) reportError(err error) {
	switch {
	case errors.Is(err, gemini.ErrMalformedResponse):
		cb.logger.Error("unexpected response shape", "error", err)
	case errors.Is(err, gemini.ErrAuthentication), errors.Is(err, gemini.ErrModelNotFound):
		cb.logger.Error("client handle unusable", "error", err)
	default:
		cb.logger.Error("failed to send message", "error", err)
	}
	fmt.Fprintf(cb.out, "\nAn error occurred: %v\n\n", err)
}

func (cb *ChatBot) close() {
	cb.logger.Info("session ended", "session_id", cb.sess.ID, "turn_count", cb.chat.Len())
	if cb.cache != nil {
		if err := cb.cache.Close(); err != nil {
			cb.logger.Error("failed to close cache", "error", err)
		}
	}
	cb.shutdown()
}
