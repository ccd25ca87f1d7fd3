package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rj-price/gemini-api/internal/config"
	"github.com/rj-price/gemini-api/internal/gemini"
	"github.com/rj-price/gemini-api/internal/telemetry"
)

// defaultPrompt is used when no prompt is given on the command line.
const defaultPrompt = "Write a four-line poem about a curious puppy exploring a garden."

func main() {
	cfg := config.Default()

	flag.StringVar(&cfg.Model, "model", cfg.Model, "Gemini model name")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for logs, traces, and metrics")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if _, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	_, _, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer shutdown()

	apiKey, err := config.LoadCredential()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		prompt = defaultPrompt
	}

	client := gemini.NewClient(apiKey, cfg.Model)
	generateAndPrint(ctx, client, prompt, os.Stdout, os.Stderr)
}

// generateAndPrint runs one generation and prints the result or the error.
// A failed generation is reported, not fatal: non-zero exits are reserved
// for startup problems like a missing credential.
func generateAndPrint(ctx context.Context, client *gemini.Client, prompt string, out, errOut io.Writer) {
	fmt.Fprintln(out, "\nSending prompt to Gemini...")

	text, err := client.Generate(ctx, prompt)
	if err != nil {
		fmt.Fprintf(errOut, "\nAn error occurred during generation: %v\n", err)
		return
	}

	fmt.Fprintln(out, "\nGemini's Response:")
	fmt.Fprintln(out, text)
}
