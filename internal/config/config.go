package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/relnote/internal/failure"
)

// Config is the effective relnote configuration. It is built once per
// process and passed down explicitly.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" json:"llm"`
	GitHub  GitHubConfig  `mapstructure:"github" json:"github"`
	Cache   CacheConfig   `mapstructure:"cache" json:"cache"`
	Privacy PrivacyConfig `mapstructure:"privacy" json:"privacy"`
}

// LLMConfig describes how to reach the OpenAI-compatible oracle.
type LLMConfig struct {
	APIKey             string `mapstructure:"api_key" json:"api_key"`
	Model              string `mapstructure:"model" json:"model"`
	BaseURL            string `mapstructure:"base_url" json:"base_url"`
	Endpoint           string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries" json:"max_retries"`
	RetryBackoffMillis int    `mapstructure:"retry_backoff_ms" json:"retry_backoff_ms"`
	CABundle           string `mapstructure:"ca_bundle" json:"ca_bundle,omitempty"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
	AuthHeader         string `mapstructure:"auth_header" json:"auth_header,omitempty"`
	AuthScheme         string `mapstructure:"auth_scheme" json:"auth_scheme"`
	PromptFormat       string `mapstructure:"prompt_format" json:"prompt_format"`
}

// GitHubConfig holds hosting API access.
type GitHubConfig struct {
	Token  string `mapstructure:"token" json:"token,omitempty"`
	APIURL string `mapstructure:"api_url" json:"api_url"`
}

// CacheConfig controls the oracle response cache.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	Dir        string `mapstructure:"dir" json:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttl_seconds" json:"ttl_seconds"`
}

// PrivacyConfig controls what leaves the process.
type PrivacyConfig struct {
	RedactPrompts        bool `mapstructure:"redact_prompts" json:"redact_prompts"`
	MaxDescriptionLength int  `mapstructure:"max_description_len" json:"max_description_len"`
}

// Prompt payload encodings.
const (
	PromptFormatJSON = "json"
	PromptFormatTOON = "toon"
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:            "https://api.openai.com/v1",
			TimeoutSeconds:     60,
			MaxRetries:         2,
			RetryBackoffMillis: 1000,
			AuthScheme:         "Bearer",
			PromptFormat:       PromptFormatJSON,
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		Cache: CacheConfig{
			TTLSeconds: 7 * 86400,
		},
		Privacy: PrivacyConfig{
			RedactPrompts:        true,
			MaxDescriptionLength: 1200,
		},
	}
}

type envKind int

const (
	envString envKind = iota
	envInt
	envBool
)

// envBinding maps a config key to the environment variables that feed it,
// first non-empty wins.
type envBinding struct {
	key  string
	kind envKind
	vars []string
}

var envBindings = []envBinding{
	{"llm.api_key", envString, []string{"RELEASE_LLM_API_KEY"}},
	{"llm.model", envString, []string{"RELEASE_LLM_MODEL"}},
	{"llm.base_url", envString, []string{"RELEASE_LLM_BASE_URL"}},
	{"llm.endpoint", envString, []string{"RELEASE_LLM_ENDPOINT"}},
	{"llm.timeout_seconds", envInt, []string{"RELEASE_LLM_TIMEOUT_SECONDS"}},
	{"llm.max_retries", envInt, []string{"RELEASE_LLM_MAX_RETRIES"}},
	{"llm.ca_bundle", envString, []string{"RELEASE_LLM_CA_BUNDLE"}},
	{"llm.insecure_skip_verify", envBool, []string{"RELEASE_LLM_INSECURE_SKIP_VERIFY"}},
	{"llm.auth_header", envString, []string{"RELEASE_LLM_AUTH_HEADER"}},
	{"llm.auth_scheme", envString, []string{"RELEASE_LLM_AUTH_SCHEME"}},
	{"llm.prompt_format", envString, []string{"RELEASE_LLM_PROMPT_FORMAT"}},
	{"github.token", envString, []string{"GITHUB_TOKEN", "GH_TOKEN"}},
	{"github.api_url", envString, []string{"GITHUB_API_URL"}},
	{"cache.enabled", envBool, []string{"RELNOTE_CACHE"}},
	{"cache.dir", envString, []string{"RELNOTE_CACHE_DIR"}},
	{"cache.ttl_seconds", envInt, []string{"RELNOTE_CACHE_TTL"}},
	{"privacy.redact_prompts", envBool, []string{"RELNOTE_REDACT_PROMPTS"}},
	{"privacy.max_description_len", envInt, []string{"RELNOTE_MAX_DESCRIPTION_LEN"}},
}

// Keys lists every settable configuration key.
func Keys() []string {
	keys := make([]string, 0, len(envBindings)+1)
	for _, b := range envBindings {
		keys = append(keys, b.key)
	}
	return append(keys, "llm.retry_backoff_ms")
}

// Load builds the effective config by merging:
// defaults <- config file <- environment (.env first) <- overrides.
// An empty path looks for config.{yaml,toml,json} in ConfigDir; a missing
// default file is not an error, a missing explicit file is.
func Load(path string, overrides map[string]string) (Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(v); err != nil {
		return Config{}, err
	}
	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, failure.Wrap(failure.Input, err, "decoding configuration")
	}
	cfg.LLM.BaseURL = strings.TrimRight(cfg.LLM.BaseURL, "/")
	cfg.GitHub.APIURL = strings.TrimRight(cfg.GitHub.APIURL, "/")
	cfg.LLM.PromptFormat = strings.ToLower(cfg.LLM.PromptFormat)
	if cfg.LLM.PromptFormat != PromptFormatJSON && cfg.LLM.PromptFormat != PromptFormatTOON {
		return Config{}, failure.Inputf("llm.prompt_format must be %q or %q, got %q", PromptFormatJSON, PromptFormatTOON, cfg.LLM.PromptFormat)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.retry_backoff_ms", d.LLM.RetryBackoffMillis)
	v.SetDefault("llm.ca_bundle", d.LLM.CABundle)
	v.SetDefault("llm.insecure_skip_verify", d.LLM.InsecureSkipVerify)
	v.SetDefault("llm.auth_header", d.LLM.AuthHeader)
	v.SetDefault("llm.auth_scheme", d.LLM.AuthScheme)
	v.SetDefault("llm.prompt_format", d.LLM.PromptFormat)
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("privacy.redact_prompts", d.Privacy.RedactPrompts)
	v.SetDefault("privacy.max_description_len", d.Privacy.MaxDescriptionLength)
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return failure.Wrap(failure.Input, err, "reading config file "+path)
		}
		return nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return failure.Wrap(failure.Input, err, "reading config file")
	}
	return nil
}

func mergeEnv(v *viper.Viper) error {
	for _, b := range envBindings {
		name, raw := lookupEnv(b.vars)
		if raw == "" {
			continue
		}
		switch b.kind {
		case envInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return failure.Inputf("%s must be an integer, got %q", name, raw)
			}
			v.Set(b.key, n)
		case envBool:
			v.Set(b.key, Truthy(raw))
		default:
			v.Set(b.key, raw)
		}
	}
	return nil
}

func lookupEnv(names []string) (string, string) {
	for _, name := range names {
		if value := NormalizeEnvValue(name, os.Getenv(name)); value != "" {
			return name, value
		}
	}
	return "", ""
}

// NormalizeEnvValue cleans up values pasted into CI secret stores: it trims
// whitespace, drops an accidental "NAME=" prefix and strips one pair of
// matching surrounding quotes.
func NormalizeEnvValue(name, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(value, name+"="); ok {
		value = strings.TrimSpace(rest)
	}
	if len(value) >= 2 && value[0] == value[len(value)-1] && (value[0] == '"' || value[0] == '\'') {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}
	return value
}

// Truthy reports whether s is one of 1, true, yes or on (case-insensitive).
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Validate checks the settings every oracle-backed stage needs.
func (c LLMConfig) Validate() error {
	if c.APIKey == "" {
		return failure.Inputf("missing RELEASE_LLM_API_KEY")
	}
	if c.Model == "" {
		return failure.Inputf("missing RELEASE_LLM_MODEL")
	}
	if c.CABundle != "" {
		info, err := os.Stat(c.CABundle)
		if err != nil || info.IsDir() {
			return failure.Inputf("RELEASE_LLM_CA_BUNDLE does not exist: %s", c.CABundle)
		}
	}
	if c.TimeoutSeconds <= 0 {
		return failure.Inputf("llm.timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.MaxRetries < 0 {
		return failure.Inputf("llm.max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// Masked returns a copy safe to print: credentials are reduced to a short
// hint.
func (c Config) Masked() Config {
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.GitHub.Token = mask(c.GitHub.Token)
	return c
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

// ConfigDir returns the platform-appropriate config directory for relnote.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "relnote"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "relnote"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "relnote"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "relnote"), nil
	default:
		return filepath.Join(home, ".config", "relnote"), nil
	}
}
