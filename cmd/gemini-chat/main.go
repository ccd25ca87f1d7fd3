package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rj-price/gemini-api/internal/chatbot"
	"github.com/rj-price/gemini-api/internal/config"
)

func main() {
	cfg := config.Default()
	var configPath string

	flag.StringVar(&cfg.Model, "model", cfg.Model, "Gemini model name")
	flag.StringVar(&cfg.SystemInstruction, "system", "", "System instruction sent with every request")
	flag.BoolVar(&cfg.CacheEnabled, "cache", false, "Cache responses in a local SQLite database")
	flag.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "Path to the response cache database")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for logs, traces, and metrics")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (flags override it)")
	flag.Parse()

	if configPath != "" {
		fileCfg := config.Default()
		if err := config.LoadFile(configPath, &fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		applyFlagOverrides(&fileCfg)
		cfg = fileCfg
	}

	bot, err := chatbot.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize chat: %v\n", err)
		os.Exit(1)
	}

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlagOverrides re-applies any flag the operator set explicitly, so
// flags win over the config file.
func applyFlagOverrides(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model = f.Value.String()
		case "system":
			cfg.SystemInstruction = f.Value.String()
		case "cache":
			cfg.CacheEnabled = f.Value.String() == "true"
		case "cache-path":
			cfg.CachePath = f.Value.String()
		case "log-dir":
			cfg.LogDir = f.Value.String()
		case "debug":
			cfg.Debug = f.Value.String() == "true"
		}
	})
}
