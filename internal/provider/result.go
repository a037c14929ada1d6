package provider

// ID names one external provider. IDs are stable and appear in persisted records.
type ID string

const (
	None ID = "none"

	FacePlusPlus   ID = "facepp"
	AzureFace      ID = "azure_face"
	GoogleVision   ID = "google_vision"
	AWSRekognition ID = "aws_rekognition"

	Gladia       ID = "gladia"
	AssemblyAI   ID = "assemblyai"
	GoogleSpeech ID = "google_speech"

	GoogleVideo ID = "google_video"

	OpenAI    ID = "openai"
	Anthropic ID = "anthropic"
	Gemini    ID = "gemini"
	Mock      ID = "mock"

	DocumentAI ID = "document_ai"
	LocalText  ID = "local_text"
)

type Capability string

const (
	CapabilityFace          Capability = "face"
	CapabilityTranscription Capability = "transcription"
	CapabilityVideoIndex    Capability = "video_index"
	CapabilityLLM           Capability = "llm"
	CapabilityDocument      Capability = "document"
)

type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindUnavailable           ErrorKind = "unavailable"
	KindAuthFailed            ErrorKind = "auth_failed"
	KindRateLimited           ErrorKind = "rate_limited"
	KindMalformed             ErrorKind = "malformed"
	KindTimeout               ErrorKind = "timeout"
	KindUnknown               ErrorKind = "unknown"
	KindAllProvidersFailed    ErrorKind = "all_providers_failed"
	KindValidationFailed      ErrorKind = "validation_failed"
	KindNoSubjectsDetected    ErrorKind = "no_subjects_detected"
	KindMediaProcessingFailed ErrorKind = "media_processing_failed"
)

// Result is the outcome of one provider call: either a value or a classified failure, never both.
type Result[T any] struct {
	OK       bool      `json:"ok"`
	Value    T         `json:"value,omitempty"`
	Kind     ErrorKind `json:"error,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Provider ID        `json:"provider"`
}

func Success[T any](id ID, v T) Result[T] {
	return Result[T]{OK: true, Value: v, Provider: id}
}

func Failure[T any](id ID, kind ErrorKind, detail string) Result[T] {
	if kind == KindNone {
		kind = KindUnknown
	}
	return Result[T]{Kind: kind, Detail: detail, Provider: id}
}

// Unwrap returns the value and whether the call succeeded.
func (r Result[T]) Unwrap() (T, bool) { return r.Value, r.OK }
