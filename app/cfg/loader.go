package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Chat integration configuration
	Integration   string `long:"integration" env:"INTEGRATION" default:"terminal" choice:"discord" choice:"telegram" choice:"terminal" description:"Chat platform the bot runs on"`
	DiscordToken  string `long:"discord-token" env:"DISCORD_TOKEN" description:"Discord bot token (required with --integration=discord)"`
	TelegramToken string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (required with --integration=telegram)"`

	// Application configuration
	DataDir string `long:"data-dir" env:"PERSISTENT_DATA_PATH" default:"./persistent_data" description:"Directory for the database and settings file"`
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`

	// Application metadata
	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Integration:   raw.Integration,
		DiscordToken:  raw.DiscordToken,
		TelegramToken: raw.TelegramToken,
		DataDir:       raw.DataDir,
		Port:          raw.Port,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	switch cfg.Integration {
	case "discord":
		if cfg.DiscordToken == "" {
			return fmt.Errorf("discord integration selected but no discord token configured")
		}
	case "telegram":
		if cfg.TelegramToken == "" {
			return fmt.Errorf("telegram integration selected but no telegram token configured")
		}
	}
	return nil
}
