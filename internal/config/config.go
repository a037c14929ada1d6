package config

import "time"

// Duration accepts "5s"-style strings or integer nanoseconds in YAML.
type Duration struct {
	time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr" validate:"required"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes" validate:"gt=0"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type SessionConfig struct {
	// Secret signs session tokens. Empty disables issuing tokens; clients may then pass X-Session-ID.
	Secret string   `yaml:"secret"`
	TTL    Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type RedisConfig struct {
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db" validate:"gte=0"`
	ResultTTL Duration `yaml:"result_ttl"`
}

// OrderConfig lists provider IDs per capability, most preferred first.
type OrderConfig struct {
	Face          []string `yaml:"face" validate:"dive,oneof=facepp azure_face google_vision aws_rekognition"`
	Transcription []string `yaml:"transcription" validate:"dive,oneof=gladia assemblyai google_speech"`
	LLM           []string `yaml:"llm" validate:"dive,oneof=openai anthropic gemini mock"`
	Document      []string `yaml:"document" validate:"dive,oneof=document_ai local_text"`
}

type PolicyConfig struct {
	RatePerSecond   float64  `yaml:"rate_per_second" validate:"gte=0"`
	Burst           int      `yaml:"burst" validate:"gte=0"`
	BreakerFailures uint32   `yaml:"breaker_failures"`
	BreakerCooldown Duration `yaml:"breaker_cooldown"`
}

type TimeoutConfig struct {
	Face          Duration `yaml:"face"`
	Transcription Duration `yaml:"transcription"`
	VideoIndex    Duration `yaml:"video_index"`
	LLM           Duration `yaml:"llm"`
	Document      Duration `yaml:"document"`
}

type MediaConfig struct {
	FFmpegPath         string   `yaml:"ffmpeg_path"`
	FFprobePath        string   `yaml:"ffprobe_path"`
	Timeout            Duration `yaml:"timeout"`
	DefaultDurationSec float64  `yaml:"default_duration_sec" validate:"gt=0"`
	DefaultSegmentSec  float64  `yaml:"default_segment_sec" validate:"gt=0"`
	ScratchDir         string   `yaml:"scratch_dir"`
	MaxPeople          int      `yaml:"max_people" validate:"gte=1,lte=20"`
}

type OrchestratorConfig struct {
	RequestTimeout   Duration `yaml:"request_timeout"`
	AlignMode        string   `yaml:"align_mode" validate:"oneof=positional overlap"`
	EnableVideoIndex bool     `yaml:"enable_video_index"`
}

type FacePPConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
}

type AzureFaceConfig struct {
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	Key      string `yaml:"key"`
}

type GCPConfig struct {
	CredentialsJSON string `yaml:"credentials_json"`
	CredentialsFile string `yaml:"credentials_file"`
	// Enabled turns on Google adapters even without explicit credentials (workload identity).
	Enabled             bool   `yaml:"enabled"`
	SpeechLanguage      string `yaml:"speech_language"`
	VideoBucket         string `yaml:"video_bucket"`
	DocumentAIProcessor string `yaml:"documentai_processor"`
	DocumentAILocation  string `yaml:"documentai_location"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type APIKeyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

type LLMProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens" validate:"gte=0"`
}

type Config struct {
	Env     string `yaml:"env"`
	LogMode string `yaml:"log_mode"`

	HTTP     HTTPConfig     `yaml:"http"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	Order        OrderConfig        `yaml:"order"`
	Policy       PolicyConfig       `yaml:"policy"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
	Media        MediaConfig        `yaml:"media"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	FacePP     FacePPConfig      `yaml:"facepp"`
	AzureFace  AzureFaceConfig   `yaml:"azure_face"`
	GCP        GCPConfig         `yaml:"gcp"`
	AWS        AWSConfig         `yaml:"aws"`
	Gladia     APIKeyConfig      `yaml:"gladia"`
	AssemblyAI APIKeyConfig      `yaml:"assemblyai"`
	OpenAI     LLMProviderConfig `yaml:"openai"`
	Anthropic  LLMProviderConfig `yaml:"anthropic"`
	Gemini     LLMProviderConfig `yaml:"gemini"`
	// MockLLM enables the deterministic offline model. Never on in production.
	MockLLM bool `yaml:"mock_llm"`
}
