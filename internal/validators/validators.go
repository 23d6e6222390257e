// Package validators holds the built-in provider validators. Each one scores
// candidate strings for a single AI provider; the orchestrator buckets those
// scores into confidence levels.
package validators

import (
	"path/filepath"
	"strings"

	"github.com/systmms/aicred/pkg/plugin"
)

// ProbeStyle selects how a provider's model listing endpoint is called.
type ProbeStyle int

const (
	ProbeNone ProbeStyle = iota
	// ProbeOpenAI is GET {base}/v1/models with a bearer token.
	ProbeOpenAI
	// ProbeAnthropic is GET {base}/v1/models with x-api-key.
	ProbeAnthropic
	// ProbeOllama is GET {base}/api/tags without credentials.
	ProbeOllama
	// ProbeSTS checks an AWS access key pair with sts:GetCallerIdentity.
	ProbeSTS
)

func (s ProbeStyle) String() string {
	switch s {
	case ProbeOpenAI:
		return "openai-models"
	case ProbeAnthropic:
		return "anthropic-models"
	case ProbeOllama:
		return "ollama-tags"
	case ProbeSTS:
		return "aws-sts"
	default:
		return "none"
	}
}

// Info describes a provider for listings and probes.
type Info struct {
	DisplayName string
	BaseURL     string
	KeyPrefix   string
	Probe       ProbeStyle
}

// Validator is a table-driven plugin.Validator.
type Validator struct {
	name     string
	provider string
	info     Info
	score    func(string) float64

	// untagged scores values no scanner attributed. Nil means score.
	untagged func(string) float64

	// pathKeywords restricts CanHandle to files whose path mentions one of
	// them. Empty means every path.
	pathKeywords []string
}

var (
	_ plugin.Validator      = (*Validator)(nil)
	_ plugin.UntaggedScorer = (*Validator)(nil)
)

func (v *Validator) Name() string       { return v.name }
func (v *Validator) ProviderID() string { return v.provider }
func (v *Validator) Info() Info         { return v.info }

// ConfidenceScore returns the provider-specific score clamped to [0,1].
func (v *Validator) ConfidenceScore(candidate string) float64 {
	return clamp(v.score(candidate))
}

// UntaggedScore scores a value that no scanner tied to a provider.
func (v *Validator) UntaggedScore(candidate string) float64 {
	if v.untagged == nil {
		return v.ConfidenceScore(candidate)
	}
	return clamp(v.untagged(candidate))
}

// CanHandle reports whether candidates from path should be scored by v.
func (v *Validator) CanHandle(path string) bool {
	if len(v.pathKeywords) == 0 {
		return true
	}
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, kw := range v.pathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PathGated reports whether v only handles files that name its provider.
func (v *Validator) PathGated() bool { return len(v.pathKeywords) > 0 }

// InfoFor returns the Info of a built-in validator when v is one.
func InfoFor(v plugin.Validator) (Info, bool) {
	if bv, ok := v.(*Validator); ok {
		return bv.info, true
	}
	return Info{}, false
}

// NewRegistry builds the default validator registry in its fixed order.
func NewRegistry() *plugin.ValidatorRegistry {
	return plugin.NewValidatorRegistry().MustRegister(Builtin()...)
}

// Builtin returns fresh instances of all built-in validators in registration order.
func Builtin() []plugin.Validator {
	return []plugin.Validator{
		&Validator{name: "openai", provider: "openai", score: openAIScore, untagged: openAIShapeScore,
			info: Info{DisplayName: "OpenAI", BaseURL: "https://api.openai.com", KeyPrefix: "sk-", Probe: ProbeOpenAI}},
		&Validator{name: "anthropic", provider: "anthropic", score: anthropicScore,
			info: Info{DisplayName: "Anthropic", BaseURL: "https://api.anthropic.com", KeyPrefix: "sk-ant-", Probe: ProbeAnthropic}},
		&Validator{name: "groq", provider: "groq", score: groqScore,
			info: Info{DisplayName: "Groq", BaseURL: "https://api.groq.com/openai", KeyPrefix: "gsk_", Probe: ProbeOpenAI}},
		&Validator{name: "huggingface", provider: "huggingface", score: huggingFaceScore,
			info: Info{DisplayName: "Hugging Face", BaseURL: "https://api-inference.huggingface.co", KeyPrefix: "hf_"}},
		&Validator{name: "ollama", provider: "ollama", score: ollamaScore, pathKeywords: []string{"ollama"},
			info: Info{DisplayName: "Ollama", BaseURL: "http://localhost:11434", Probe: ProbeOllama}},
		&Validator{name: "openrouter", provider: "openrouter", score: openRouterScore,
			info: Info{DisplayName: "OpenRouter", BaseURL: "https://openrouter.ai/api", KeyPrefix: "sk-or-", Probe: ProbeOpenAI}},
		&Validator{name: "litellm", provider: "litellm", score: liteLLMScore, pathKeywords: []string{"litellm"},
			info: Info{DisplayName: "LiteLLM", BaseURL: "http://localhost:4000", Probe: ProbeOpenAI}},
		&Validator{name: "aws_bedrock", provider: "aws_bedrock", score: bedrockScore,
			info: Info{DisplayName: "AWS Bedrock", BaseURL: "https://bedrock.us-east-1.amazonaws.com", KeyPrefix: "AKIA", Probe: ProbeSTS}},
		&Validator{name: "azure", provider: "azure", score: azureScore, pathKeywords: []string{"azure"},
			info: Info{DisplayName: "Azure OpenAI", BaseURL: "https://openai.azure.com"}},
		&Validator{name: "cohere", provider: "cohere", score: cohereScore,
			info: Info{DisplayName: "Cohere", BaseURL: "https://api.cohere.ai", KeyPrefix: "cohere-", Probe: ProbeOpenAI}},
		&Validator{name: "deepseek", provider: "deepseek", score: deepSeekScore, pathKeywords: []string{"deepseek"},
			info: Info{DisplayName: "DeepSeek", BaseURL: "https://api.deepseek.com", KeyPrefix: "sk-", Probe: ProbeOpenAI}},
		&Validator{name: "fireworks", provider: "fireworks", score: fireworksScore,
			info: Info{DisplayName: "Fireworks AI", BaseURL: "https://api.fireworks.ai/inference", KeyPrefix: "fw_", Probe: ProbeOpenAI}},
		&Validator{name: "google", provider: "google", score: googleScore, pathKeywords: []string{"google", "gemini"},
			info: Info{DisplayName: "Google Gemini", BaseURL: "https://generativelanguage.googleapis.com"}},
		&Validator{name: "grok", provider: "grok", score: grokScore,
			info: Info{DisplayName: "xAI Grok", BaseURL: "https://api.x.ai", KeyPrefix: "xai-", Probe: ProbeOpenAI}},
		&Validator{name: "mistral", provider: "mistral", score: mistralScore, pathKeywords: []string{"mistral"},
			info: Info{DisplayName: "Mistral AI", BaseURL: "https://api.mistral.ai", Probe: ProbeOpenAI}},
		&Validator{name: "moonshot", provider: "moonshot", score: moonshotScore, pathKeywords: []string{"moonshot", "kimi"},
			info: Info{DisplayName: "Moonshot AI", BaseURL: "https://api.moonshot.cn", KeyPrefix: "sk-", Probe: ProbeOpenAI}},
		&Validator{name: "perplexity", provider: "perplexity", score: perplexityScore,
			info: Info{DisplayName: "Perplexity", BaseURL: "https://api.perplexity.ai", KeyPrefix: "pplx-"}},
		&Validator{name: "replicate", provider: "replicate", score: replicateScore,
			info: Info{DisplayName: "Replicate", BaseURL: "https://api.replicate.com", KeyPrefix: "r8_"}},
		&Validator{name: "together", provider: "together", score: togetherScore, pathKeywords: []string{"together"},
			info: Info{DisplayName: "Together AI", BaseURL: "https://api.together.xyz", Probe: ProbeOpenAI}},
		&Validator{name: "zai", provider: "zai", score: zaiScore,
			info: Info{DisplayName: "Z.AI", BaseURL: "https://api.zai.tools", KeyPrefix: "zai-"}},
	}
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
