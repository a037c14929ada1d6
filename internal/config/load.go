package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must look like \"5s\" or be integer nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.Duration.String(), nil }

func Default() *Config {
	return &Config{
		Env:     "development",
		LogMode: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{5 * time.Second},
			ShutdownTimeout:   Duration{15 * time.Second},
			MaxRequestBytes:   200 << 20,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Session: SessionConfig{TTL: Duration{7 * 24 * time.Hour}},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:persona.db?_foreign_keys=on",
		},
		Redis: RedisConfig{ResultTTL: Duration{24 * time.Hour}},
		Order: OrderConfig{
			Face:          []string{"facepp", "azure_face", "google_vision", "aws_rekognition"},
			Transcription: []string{"gladia", "assemblyai", "google_speech"},
			LLM:           []string{"openai", "anthropic", "gemini"},
			Document:      []string{"document_ai", "local_text"},
		},
		Policy: PolicyConfig{
			RatePerSecond:   5,
			Burst:           5,
			BreakerFailures: 5,
			BreakerCooldown: Duration{30 * time.Second},
		},
		Timeouts: TimeoutConfig{
			Face:          Duration{30 * time.Second},
			Transcription: Duration{5 * time.Minute},
			VideoIndex:    Duration{8 * time.Minute},
			LLM:           Duration{3 * time.Minute},
			Document:      Duration{2 * time.Minute},
		},
		Media: MediaConfig{
			FFmpegPath:         "ffmpeg",
			FFprobePath:        "ffprobe",
			Timeout:            Duration{5 * time.Minute},
			DefaultDurationSec: 30,
			DefaultSegmentSec:  10,
			MaxPeople:          5,
		},
		Orchestrator: OrchestratorConfig{
			RequestTimeout:   Duration{10 * time.Minute},
			AlignMode:        "positional",
			EnableVideoIndex: true,
		},
		FacePP:     FacePPConfig{BaseURL: "https://api-us.faceplusplus.com"},
		GCP:        GCPConfig{SpeechLanguage: "en-US", DocumentAILocation: "us"},
		Gladia:     APIKeyConfig{BaseURL: "https://api.gladia.io"},
		AssemblyAI: APIKeyConfig{BaseURL: "https://api.assemblyai.com"},
		OpenAI:     LLMProviderConfig{BaseURL: "https://api.openai.com", Model: "gpt-4o"},
		Anthropic:  LLMProviderConfig{Model: "claude-sonnet-4-5", MaxTokens: 8192},
		Gemini:     LLMProviderConfig{Model: "gemini-2.5-flash"},
	}
}

// Load applies defaults, then the YAML file (PERSONA_CONFIG_PATH or ./config/config.yaml
// when present), then environment overrides, then validation.
func Load() (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(os.Getenv("PERSONA_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg, os.Getenv)
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	list := func(dst *[]string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = splitList(v)
		}
	}
	boolean := func(dst *bool, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = parseBool(v)
		}
	}
	dur := func(dst *Duration, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				dst.Duration = d
			}
		}
	}

	str(&cfg.Env, "ENV")
	str(&cfg.LogMode, "LOG_MODE")
	str(&cfg.HTTP.Addr, "PERSONA_HTTP_ADDR")
	if v := strings.TrimSpace(getenv("PORT")); v != "" && strings.TrimSpace(getenv("PERSONA_HTTP_ADDR")) == "" {
		cfg.HTTP.Addr = ":" + v
	}
	list(&cfg.HTTP.CORSOrigins, "CORS_ORIGINS")
	str(&cfg.Session.Secret, "SESSION_SECRET")
	str(&cfg.Database.DSN, "DATABASE_URL")
	str(&cfg.Database.Driver, "DATABASE_DRIVER")
	str(&cfg.Redis.Addr, "REDIS_ADDR")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")

	list(&cfg.Order.Face, "PERSONA_FACE_ORDER")
	list(&cfg.Order.Transcription, "PERSONA_TRANSCRIPTION_ORDER")
	list(&cfg.Order.LLM, "PERSONA_LLM_ORDER")
	list(&cfg.Order.Document, "PERSONA_DOCUMENT_ORDER")
	dur(&cfg.Orchestrator.RequestTimeout, "PERSONA_REQUEST_TIMEOUT")
	str(&cfg.Orchestrator.AlignMode, "PERSONA_ALIGN_MODE")
	boolean(&cfg.Orchestrator.EnableVideoIndex, "PERSONA_ENABLE_VIDEO_INDEX")
	str(&cfg.Media.FFmpegPath, "FFMPEG_PATH")
	str(&cfg.Media.FFprobePath, "FFPROBE_PATH")
	str(&cfg.Media.ScratchDir, "PERSONA_SCRATCH_DIR")

	str(&cfg.FacePP.APIKey, "FACEPP_API_KEY")
	str(&cfg.FacePP.APISecret, "FACEPP_API_SECRET")
	str(&cfg.AzureFace.Endpoint, "AZURE_FACE_ENDPOINT")
	str(&cfg.AzureFace.Key, "AZURE_FACE_KEY")
	str(&cfg.GCP.CredentialsJSON, "GOOGLE_APPLICATION_CREDENTIALS_JSON")
	str(&cfg.GCP.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	boolean(&cfg.GCP.Enabled, "GCP_ENABLED")
	str(&cfg.GCP.VideoBucket, "GCS_VIDEO_BUCKET")
	str(&cfg.GCP.DocumentAIProcessor, "DOCUMENTAI_PROCESSOR")
	str(&cfg.GCP.DocumentAILocation, "DOCUMENTAI_LOCATION")
	str(&cfg.AWS.Region, "AWS_REGION", "AWS_DEFAULT_REGION")
	str(&cfg.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	str(&cfg.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	str(&cfg.Gladia.APIKey, "GLADIA_API_KEY")
	str(&cfg.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	str(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	str(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	str(&cfg.OpenAI.Model, "OPENAI_MODEL")
	str(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	str(&cfg.Anthropic.Model, "ANTHROPIC_MODEL")
	str(&cfg.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	str(&cfg.Gemini.Model, "GEMINI_MODEL")
	boolean(&cfg.MockLLM, "PERSONA_MOCK_LLM")
}

func normalize(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if strings.HasPrefix(cfg.Database.DSN, "postgres://") || strings.HasPrefix(cfg.Database.DSN, "postgresql://") {
		cfg.Database.Driver = "postgres"
	}
	cfg.Orchestrator.AlignMode = strings.ToLower(strings.TrimSpace(cfg.Orchestrator.AlignMode))
	for _, u := range []*string{&cfg.FacePP.BaseURL, &cfg.AzureFace.Endpoint, &cfg.Gladia.BaseURL, &cfg.AssemblyAI.BaseURL, &cfg.OpenAI.BaseURL} {
		*u = strings.TrimRight(strings.TrimSpace(*u), "/")
	}
	if cfg.MockLLM && !containsString(cfg.Order.LLM, "mock") {
		cfg.Order.LLM = append(cfg.Order.LLM, "mock")
	}
}

var validate = validator.New()

// Validate checks struct tags plus rules that span fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, order := range map[string][]string{
		"face": cfg.Order.Face, "transcription": cfg.Order.Transcription,
		"llm": cfg.Order.LLM, "document": cfg.Order.Document,
	} {
		seen := map[string]bool{}
		for _, id := range order {
			if seen[id] {
				return fmt.Errorf("invalid config: order.%s lists %q twice", name, id)
			}
			seen[id] = true
		}
	}
	if (cfg.AWS.AccessKeyID == "") != (cfg.AWS.SecretAccessKey == "") {
		return errors.New("invalid config: AWS access key id and secret must be set together")
	}
	return nil
}

// GCPConfigured is true when Google adapters have credentials to work with.
func (c *Config) GCPConfigured() bool {
	return c.GCP.Enabled || c.GCP.CredentialsJSON != "" || c.GCP.CredentialsFile != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
