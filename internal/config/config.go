package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates the settings for the whole service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Game   GameConfig
	Solo   SoloConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	game, err := loadGameConfig()
	if err != nil {
		return nil, err
	}

	solo, err := loadSoloConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Game: game, Solo: solo}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// GameConfig carries the room coordination constants.
type GameConfig struct {
	MaxPlayers int
	// MultiplayerChoiceLimit ends the plain multiplayer flow; StoryTurnLimit
	// ends the AI-orchestrated flow. The two thresholds are separate
	// parameters of two different paths.
	MultiplayerChoiceLimit  int
	StoryTurnLimit          int
	AutoCreateOnMissingRoom bool
	GenerationTimeout       time.Duration
}

func loadGameConfig() (GameConfig, error) {
	maxPlayers, err := parseIntEnv("GAME_MAX_PLAYERS", 4)
	if err != nil {
		return GameConfig{}, err
	}

	choiceLimit, err := parseIntEnv("GAME_CHOICE_LIMIT", 6)
	if err != nil {
		return GameConfig{}, err
	}

	turnLimit, err := parseIntEnv("GAME_STORY_TURN_LIMIT", 5)
	if err != nil {
		return GameConfig{}, err
	}

	autoCreate, err := parseBoolEnv("GAME_AUTO_CREATE_ON_MISSING_ROOM", true)
	if err != nil {
		return GameConfig{}, err
	}

	genTimeout, err := parseIntEnv("GAME_GENERATION_TIMEOUT", 30)
	if err != nil {
		return GameConfig{}, err
	}

	return GameConfig{
		MaxPlayers:              maxPlayers,
		MultiplayerChoiceLimit:  choiceLimit,
		StoryTurnLimit:          turnLimit,
		AutoCreateOnMissingRoom: autoCreate,
		GenerationTimeout:       time.Duration(genTimeout) * time.Second,
	}, nil
}

// SoloConfig controls the solo session idle-expiry sweep.
type SoloConfig struct {
	SweepInterval time.Duration
	MaxIdle       time.Duration
}

func loadSoloConfig() (SoloConfig, error) {
	sweepMinutes, err := parseIntEnv("SOLO_SWEEP_INTERVAL_MINUTES", 60)
	if err != nil {
		return SoloConfig{}, err
	}

	idleHours, err := parseIntEnv("SOLO_MAX_IDLE_HOURS", 24)
	if err != nil {
		return SoloConfig{}, err
	}

	return SoloConfig{
		SweepInterval: time.Duration(sweepMinutes) * time.Minute,
		MaxIdle:       time.Duration(idleHours) * time.Hour,
	}, nil
}

// AIConfig describes the content generator model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
