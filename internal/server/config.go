package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/store"
)

// Settings are the runtime tunables after the world file and overrides are
// applied.
type Settings struct {
	Presentation dialogue.ConfigData
	TickHz       float64
}

func DefaultSettings() Settings {
	return Settings{Presentation: dialogue.DefaultConfigData(), TickHz: game.SimHz}
}

// Overrides are optional replacements for Settings, read from the world file
// or from command-line flags. Nil fields leave the current value alone.
type Overrides struct {
	Skin                 *string  `json:"skin" yaml:"skin"`
	SkipKey              *string  `json:"skipKey" yaml:"skip_key"`
	RevisitChoiceOpacity *float64 `json:"revisitChoiceOpacity" yaml:"revisit_choice_opacity"`
	Typewriter           *bool    `json:"typewriter" yaml:"typewriter"`
	CharactersPerSecond  *float64 `json:"charactersPerSecond" yaml:"characters_per_second"`
	TickHz               *float64 `json:"tickHz" yaml:"tick_hz"`
}

type worldConfig struct {
	Dialogue *Overrides `json:"dialogue" yaml:"dialogue"`
}

func (o *Overrides) apply(base Settings) Settings {
	if o == nil {
		return SanitizeSettings(base)
	}
	if o.Skin != nil {
		base.Presentation.Skin = *o.Skin
	}
	if o.SkipKey != nil {
		base.Presentation.SkipKey = *o.SkipKey
	}
	if o.RevisitChoiceOpacity != nil {
		base.Presentation.RevisitChoiceOpacity = *o.RevisitChoiceOpacity
	}
	if o.Typewriter != nil {
		base.Presentation.TypewriterEnabled = *o.Typewriter
	}
	if o.CharactersPerSecond != nil {
		base.Presentation.CharactersPerSecond = *o.CharactersPerSecond
	}
	if o.TickHz != nil {
		base.TickHz = *o.TickHz
	}
	return SanitizeSettings(base)
}

// SanitizeSettings clamps values a client could not sensibly run with.
func SanitizeSettings(s Settings) Settings {
	p := &s.Presentation
	if p.RevisitChoiceOpacity < 0 {
		p.RevisitChoiceOpacity = 0
	}
	if p.RevisitChoiceOpacity > 1 {
		p.RevisitChoiceOpacity = 1
	}
	if p.CharactersPerSecond < 0 {
		p.CharactersPerSecond = 0
	}
	if s.TickHz < 1 || s.TickHz > 240 {
		s.TickHz = game.SimHz
	}
	return s
}

// loadSettingsFromFile merges the dialogue section of a YAML or JSON world file
// over base. A missing file is not an error.
func loadSettingsFromFile(path string, base Settings) (Settings, error) {
	if path == "" {
		return SanitizeSettings(base), nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return SanitizeSettings(base), nil
		}
		return SanitizeSettings(base), fmt.Errorf("read world config %q: %w", cleanPath, err)
	}
	var cfg worldConfig
	if strings.EqualFold(filepath.Ext(cleanPath), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return SanitizeSettings(base), fmt.Errorf("parse world config %q: %w", cleanPath, err)
	}
	return cfg.Dialogue.apply(base), nil
}

// AppConfig is everything StartApp needs.
type AppConfig struct {
	Addr      string
	AssetsDir string // empty serves the built-in demo dialogues
	WorldPath string
	LogLevel  string
	Seed      int64 // 0 seeds from the clock
	Store     store.Config
	Overrides Overrides
}

// DefaultAppConfig reads the environment, after loading .env when present.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Addr:      getenv("DIALOGUE_ADDR", ":8080"),
		AssetsDir: getenv("DIALOGUE_ASSETS", ""),
		WorldPath: getenv("DIALOGUE_CONFIG", "configs/dialogue.yaml"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		Seed:      getenvInt("DIALOGUE_SEED", 0),
		Store: store.Config{
			Backend:     getenv("DIALOGUE_STORE", "memory"),
			RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
			SQLitePath:  getenv("SQLITE_PATH", "dialogue.db"),
			DatabaseURL: getenv("DATABASE_URL", ""),
		},
	}
}

// LoadDotEnv loads the given env files, .env by default. Missing files are
// logged and skipped.
func LoadDotEnv(log *slog.Logger, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			log.Debug("no env file loaded", "file", f, "err", err)
		}
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// NewLogger builds the text logger the server writes to stderr.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
