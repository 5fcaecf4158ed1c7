package config

const (
	defaultDataDir        = "~/.local/share/redub"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultAudioTimeout   = 60
	defaultComposeTimeout = 600
	defaultProbeTimeout   = 30
	defaultDecodeTimeout  = 120
	defaultWhisperBin     = "whisper-cli"
	defaultWhisperModel   = "~/.cache/redub/models/ggml-base.bin"
	defaultCleanerModel   = "openai/gpt-4o-mini"
	defaultOpenRouterURL  = "https://openrouter.ai"
	defaultSpeechModel    = "tts-1"
	defaultVoice          = "alloy"
	defaultConcurrency    = 2

	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderNone       = "none"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpeg,
			ProbeBinary:    defaultFFprobe,
			AudioTimeout:   defaultAudioTimeout,
			ComposeTimeout: defaultComposeTimeout,
			ProbeTimeout:   defaultProbeTimeout,
			DecodeTimeout:  defaultDecodeTimeout,
		},
		Whisper: Whisper{
			Binary:   defaultWhisperBin,
			Model:    defaultWhisperModel,
			Language: "auto",
		},
		Cleaner: Cleaner{
			Provider: ProviderOpenRouter,
			BaseURL:  defaultOpenRouterURL,
			Model:    defaultCleanerModel,
		},
		Synthesis: Synthesis{
			Model:       defaultSpeechModel,
			Voice:       defaultVoice,
			Concurrency: defaultConcurrency,
		},
		Overlay: Overlay{
			Position: "bottom-right",
			Size:     "medium",
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
