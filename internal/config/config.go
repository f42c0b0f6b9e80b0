package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig  `koanf:"server"`
	Storage  StorageConfig `koanf:"storage"`
	Agents   AgentsConfig  `koanf:"agents"`
	Executor ModelConfig   `koanf:"executor"`
	Utility  ModelConfig   `koanf:"utility"`
	Search   SearchConfig  `koanf:"search"`
	Debate   DebateConfig  `koanf:"debate"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type AgentsConfig struct {
	Directory string `koanf:"directory"`
}

// ModelConfig describes one chat completion service. The executor model does
// the heavy lifting inside the debate; the utility model generates the short
// status narration between iterations.
type ModelConfig struct {
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float32 `koanf:"temperature"`
}

type SearchConfig struct {
	Endpoint              string `koanf:"endpoint"`
	APIKey                string `koanf:"api_key"`
	Index                 string `koanf:"index"`
	SemanticConfiguration string `koanf:"semantic_configuration"`
	VectorField           string `koanf:"vector_field"`
	Top                   int    `koanf:"top"`
}

type DebateConfig struct {
	MaxIterations  int `koanf:"max_iterations"`
	ScoreThreshold int `koanf:"score_threshold"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory, if present, with
// AGORA_-prefixed environment variables layered on top.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Environment variables override file config: AGORA_SERVER__PORT=9000
	// maps to server.port.
	if err := k.Load(env.Provider("AGORA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "AGORA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Executor.APIKey = substituteEnvVars(cfg.Executor.APIKey)
	cfg.Utility.APIKey = substituteEnvVars(cfg.Utility.APIKey)
	cfg.Search.APIKey = substituteEnvVars(cfg.Search.APIKey)

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":            8080,
		"storage.type":           "sqlite",
		"storage.sqlite.path":    "./data/agora.db",
		"agents.directory":       "agents",
		"executor.model":         "gpt-4o",
		"utility.model":          "gpt-4o-mini",
		"search.vector_field":    "text_vector",
		"search.top":             10,
		"debate.max_iterations":  3,
		"debate.score_threshold": 8,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
