// Package config provides the configuration schema and loader for the Larynx
// telephony bridge.
package config

// LogLevel controls log verbosity for the Larynx server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ValidProviderNames lists the AI providers the bridge can connect calls to.
var ValidProviderNames = []string{"gemini-live", "openai-realtime"}

// Config is the root configuration structure for Larynx.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Audio    AudioConfig    `yaml:"audio"`
}

// ServerConfig holds network and logging settings for the Larynx server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// PublicURL is the externally reachable base URL of this server, as
	// seen by the telephony provider (e.g. an ngrok or load-balancer URL).
	// The media-stream WebSocket URL in TwiML responses is derived from it.
	PublicURL string `yaml:"public_url"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProviderConfig selects and configures the realtime AI voice backend.
type ProviderConfig struct {
	// Name is the provider to bridge calls to. One of [ValidProviderNames].
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. Supports ${VAR} expansion
	// so secrets can stay in the environment.
	APIKey string `yaml:"api_key"`

	// Model overrides the provider's default model name.
	Model string `yaml:"model"`

	// BaseURL overrides the provider's endpoint, mainly for testing.
	BaseURL string `yaml:"base_url"`

	// Voice selects the synthesised voice. Empty uses the provider default.
	Voice string `yaml:"voice"`

	// SystemPrompt is the system instruction injected at session start.
	SystemPrompt string `yaml:"system_prompt"`

	// Greeting is spoken to the caller before the stream connects.
	Greeting string `yaml:"greeting"`
}

// AudioConfig tunes the transcoding pipeline. The defaults suit Twilio Media
// Streams on one side and Gemini Live or OpenAI Realtime on the other.
type AudioConfig struct {
	// TelephonyRate is the telephony leg's sample rate in Hz. Default 8000.
	TelephonyRate int `yaml:"telephony_rate"`

	// InputRate is the PCM16 rate sent to the AI peer. Zero uses the
	// provider's native input rate.
	InputRate int `yaml:"input_rate"`

	// OutputRate is the PCM16 rate expected from the AI peer. Zero uses
	// the provider's native output rate.
	OutputRate int `yaml:"output_rate"`

	// FrameBytes is the minimum inbound frame size forwarded to the AI
	// peer. Default 9600 (300ms at 16kHz).
	FrameBytes int `yaml:"frame_bytes"`
}
