package scanners

import (
	"strings"

	"github.com/systmms/aicred/internal/parse"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// Well-known credential variables and the provider that issues them.
var knownVars = map[string]string{
	"OPENAI_API_KEY":               "openai",
	"ANTHROPIC_API_KEY":            "anthropic",
	"CLAUDE_API_KEY":               "anthropic",
	"GROQ_API_KEY":                 "groq",
	"HF_TOKEN":                     "huggingface",
	"HUGGING_FACE_HUB_TOKEN":       "huggingface",
	"HUGGINGFACE_API_KEY":          "huggingface",
	"HUGGINGFACEHUB_API_TOKEN":     "huggingface",
	"OPENROUTER_API_KEY":           "openrouter",
	"LITELLM_API_KEY":              "litellm",
	"LITELLM_MASTER_KEY":           "litellm",
	"AWS_ACCESS_KEY_ID":            "aws_bedrock",
	"AWS_SECRET_ACCESS_KEY":        "aws_bedrock",
	"AWS_SESSION_TOKEN":            "aws_bedrock",
	"AWS_BEARER_TOKEN_BEDROCK":     "aws_bedrock",
	"AZURE_OPENAI_API_KEY":         "azure",
	"AZURE_API_KEY":                "azure",
	"COHERE_API_KEY":               "cohere",
	"CO_API_KEY":                   "cohere",
	"DEEPSEEK_API_KEY":             "deepseek",
	"FIREWORKS_API_KEY":            "fireworks",
	"GOOGLE_API_KEY":               "google",
	"GEMINI_API_KEY":               "google",
	"GOOGLE_GENERATIVE_AI_API_KEY": "google",
	"XAI_API_KEY":                  "grok",
	"GROK_API_KEY":                 "grok",
	"MISTRAL_API_KEY":              "mistral",
	"MOONSHOT_API_KEY":             "moonshot",
	"KIMI_API_KEY":                 "moonshot",
	"PERPLEXITY_API_KEY":           "perplexity",
	"PPLX_API_KEY":                 "perplexity",
	"REPLICATE_API_TOKEN":          "replicate",
	"REPLICATE_API_KEY":            "replicate",
	"TOGETHER_API_KEY":             "together",
	"TOGETHERAI_API_KEY":           "together",
	"ZAI_API_KEY":                  "zai",
	"ZHIPUAI_API_KEY":              "zai",
	"LANGCHAIN_API_KEY":            "langchain",
	"LANGSMITH_API_KEY":            "langchain",
}

// Checked in order; more specific names come first.
var providerKeywords = []struct {
	keyword  string
	provider string
}{
	{"openrouter", "openrouter"},
	{"azure", "azure"},
	{"openai", "openai"},
	{"anthropic", "anthropic"},
	{"claude", "anthropic"},
	{"groq", "groq"},
	{"hugging", "huggingface"},
	{"ollama", "ollama"},
	{"litellm", "litellm"},
	{"bedrock", "aws_bedrock"},
	{"aws", "aws_bedrock"},
	{"cohere", "cohere"},
	{"deepseek", "deepseek"},
	{"fireworks", "fireworks"},
	{"gemini", "google"},
	{"google", "google"},
	{"grok", "grok"},
	{"xai", "grok"},
	{"mistral", "mistral"},
	{"moonshot", "moonshot"},
	{"kimi", "moonshot"},
	{"perplexity", "perplexity"},
	{"pplx", "perplexity"},
	{"replicate", "replicate"},
	{"together", "together"},
	{"zhipu", "zai"},
	{"zai", "zai"},
	{"langchain", "langchain"},
	{"langsmith", "langchain"},
}

var settingSuffixes = []string{
	"_BASE_URL", "_API_BASE", "_API_BASE_URL", "_HOST", "_ENDPOINT", "_MODEL",
	"_MODEL_ID", "_REGION", "_TEMPERATURE", "_API_VERSION", "_DEPLOYMENT",
}

// ProviderForVar looks up a well-known credential variable.
func ProviderForVar(name string) (string, bool) {
	p, ok := knownVars[strings.ToUpper(name)]
	return p, ok
}

// providerHint guesses a provider from any identifier that names one.
func providerHint(name string) string {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "hf_") {
		return "huggingface"
	}
	for _, kw := range providerKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.provider
		}
	}
	return ""
}

func isSettingVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range settingSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return providerHint(name) != ""
		}
	}
	return false
}

func isSecretLikeVar(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "KEY") || strings.Contains(upper, "TOKEN") || strings.Contains(upper, "SECRET")
}

func valueTypeFor(name string) credential.ValueType {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "SECRET"):
		return credential.ValueTypeSecretKey
	case strings.Contains(upper, "BEARER"):
		return credential.ValueTypeBearerToken
	case strings.Contains(upper, "TOKEN"):
		return credential.ValueTypeAccessToken
	default:
		return credential.ValueTypeAPIKey
	}
}

// addEnvEntries sorts variable assignments into candidates and metadata.
// Well-known variables become tagged candidates; settings naming a provider
// become metadata; other key/token/secret variables become candidates,
// tagged when the name hints at a provider.
func addEnvEntries(cfg *plugin.ParsedConfig, entries []parse.Entry) {
	for _, e := range entries {
		name := e.LeafKey()
		switch {
		case knownVars[strings.ToUpper(name)] != "":
			if !plausible(e.Value, 8) {
				continue
			}
			cfg.Candidates = append(cfg.Candidates, candidateFrom(e, knownVars[strings.ToUpper(name)]))
		case isSettingVar(name):
			cfg.Metadata[strings.ToLower(name)] = e.Value
		case isSecretLikeVar(name):
			if !plausible(e.Value, 15) {
				continue
			}
			cfg.Candidates = append(cfg.Candidates, candidateFrom(e, providerHint(name)))
		}
	}
}

func candidateFrom(e parse.Entry, provider string) plugin.Candidate {
	return plugin.Candidate{
		Value:     e.Value,
		Provider:  provider,
		ValueType: valueTypeFor(e.LeafKey()),
		Field:     e.Key,
		Line:      e.Line,
		Column:    e.Column,
	}
}
