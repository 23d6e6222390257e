package validators

import (
	"strings"
	"unicode"
)

// openAIScore keeps a Medium floor for values a scanner already tied to
// openai, such as OPENAI_API_KEY with an unusual format.
func openAIScore(key string) float64 {
	if score := openAIShapeScore(key); score >= 0.50 {
		return score
	}
	return 0.50
}

// openAIShapeScore rates the value alone. Untagged values go through it so
// that openai, which handles every file, does not claim unrelated secrets.
func openAIShapeScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "sk-proj-"), strings.HasPrefix(key, "sk-"):
		return 0.95
	case len(key) >= 40 && strings.Contains(key, "-"):
		return 0.75
	default:
		return 0.30
	}
}

func anthropicScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "sk-ant-"):
		return 0.95
	case len(key) >= 40 && strings.Contains(key, "-"):
		return 0.70
	default:
		return 0.30
	}
}

func groqScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "gsk_"), strings.HasPrefix(key, "gsk-"):
		return 0.95
	case len(key) >= 40 && strings.Contains(key, "_"):
		return 0.70
	default:
		return 0.30
	}
}

func huggingFaceScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "hf_"):
		return 0.95
	case len(key) >= 40 && strings.Contains(key, "_"):
		return 0.70
	default:
		return 0.30
	}
}

// Ollama values are server URLs and model names rather than secrets.
func ollamaScore(value string) float64 {
	switch {
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return 0.85
	case strings.Contains(value, "/") && len(value) >= 7:
		return 0.80
	default:
		return 0.70
	}
}

func openRouterScore(key string) float64 {
	score := 0.3
	if strings.HasPrefix(key, "sk-or-") {
		score += 0.5
	}
	if len(key) >= 40 {
		score += 0.1
	}
	if hasUpper(key) && hasLower(key) && hasDigit(key) {
		score += 0.1
	}
	return score
}

func liteLLMScore(key string) float64 {
	switch {
	case len(key) >= 40 && strings.Contains(key, "-") && hasUpper(key):
		return 0.85
	case len(key) >= 30:
		return 0.85
	default:
		return 0.50
	}
}

func bedrockScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "AKIA") && len(key) == 20:
		return 0.95
	case len(key) == 40 && allOf(key, isSecretKeyChar):
		// secret access keys are 40 base64 characters
		return 0.80
	case len(key) == 16:
		return 0.60
	default:
		return 0.30
	}
}

func azureScore(key string) float64 {
	switch {
	case len(key) == 32 && allOf(key, isHex):
		return 0.90
	case len(key) >= 20 && allOf(key, isAlnum):
		return 0.60
	default:
		return 0.30
	}
}

func cohereScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "cohere-"):
		return 0.95
	case len(key) >= 32 && allOf(key, isAlnum):
		return 0.60
	default:
		return 0.30
	}
}

func deepSeekScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "sk-") && len(key) >= 40:
		return 0.90
	case len(key) >= 32 && allOf(key, isTokenChar):
		return 0.65
	default:
		return 0.35
	}
}

func fireworksScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "fw_"):
		return 0.95
	case len(key) >= 32 && allOf(key, isTokenChar):
		return 0.60
	default:
		return 0.30
	}
}

func googleScore(key string) float64 {
	switch {
	case len(key) == 39 && allOf(key, isTokenChar):
		return 0.90
	case len(key) >= 32 && len(key) <= 50 && allOf(key, isAlnum):
		return 0.70
	default:
		return 0.35
	}
}

func grokScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "sk-") && len(key) >= 40:
		return 0.90
	case strings.HasPrefix(key, "xai-") && len(key) >= 30:
		return 0.85
	case len(key) >= 32 && allOf(key, isTokenChar):
		return 0.55
	default:
		return 0.30
	}
}

func mistralScore(key string) float64 {
	switch {
	case len(key) == 32 && allOf(key, isAlnum):
		return 0.95
	case len(key) >= 24 && len(key) <= 40 && allOf(key, isAlnum):
		return 0.65
	default:
		return 0.35
	}
}

func moonshotScore(key string) float64 {
	return deepSeekScore(key)
}

func perplexityScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "pplx-") && len(key) >= 30:
		return 0.95
	case strings.HasPrefix(key, "pplx") && len(key) >= 20:
		return 0.75
	default:
		return 0.35
	}
}

func replicateScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "r8_") && len(key) >= 30:
		return 0.95
	case strings.HasPrefix(key, "r8") && len(key) >= 20:
		return 0.70
	default:
		return 0.35
	}
}

func togetherScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "e5f") && len(key) >= 30:
		return 0.90
	case len(key) >= 32 && allOf(key, isTokenChar):
		return 0.60
	default:
		return 0.35
	}
}

func zaiScore(key string) float64 {
	switch {
	case strings.HasPrefix(key, "zai-") && len(key) >= 30:
		return 0.90
	case strings.HasPrefix(key, "sk-") && len(key) >= 32:
		return 0.75
	case len(key) >= 32 && allOf(key, isTokenChar):
		return 0.55
	default:
		return 0.30
	}
}

// GenericScore rates how secret-like a string is without any provider
// knowledge. It is used for candidates no validator claims.
func GenericScore(value string) float64 {
	score := 0.3
	if len(value) >= 20 {
		score += 0.2
	}
	if len(value) >= 40 {
		score += 0.1
	}
	if hasUpper(value) && hasLower(value) {
		score += 0.1
	}
	if hasDigit(value) {
		score += 0.05
	}
	if strings.IndexFunc(value, func(r rune) bool { return !isAlnum(r) }) >= 0 {
		score += 0.05
	}
	if strings.HasPrefix(value, "sk-") || strings.HasPrefix(value, "ak-") {
		score += 0.1
	}
	return clamp(score)
}

func allOf(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return s != ""
}

func hasUpper(s string) bool { return strings.IndexFunc(s, unicode.IsUpper) >= 0 }
func hasLower(s string) bool { return strings.IndexFunc(s, unicode.IsLower) >= 0 }
func hasDigit(s string) bool { return strings.IndexFunc(s, isDigit) >= 0 }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isTokenChar(r rune) bool { return isAlnum(r) || r == '-' || r == '_' }

func isSecretKeyChar(r rune) bool { return isAlnum(r) || r == '/' || r == '+' }
