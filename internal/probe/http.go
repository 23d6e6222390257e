package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/systmms/aicred/internal/validators"
)

const (
	anthropicVersion = "2023-06-01"
	maxResponseBytes = 4 << 20
)

// statusError is a non-200 response. Its message matches the patterns
// aicerrors.IsRetryable looks for.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d %s", e.code, http.StatusText(e.code))
}

// openAI-compatible and Anthropic list responses
type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ollama /api/tags response
type tagList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *Prober) listModels(ctx context.Context, j job) ([]string, error) {
	path := "/v1/models"
	if j.style == validators.ProbeOllama {
		path = "/api/tags"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", j.provider, err)
	}
	req.Header.Set("Accept", "application/json")
	switch j.style {
	case validators.ProbeOpenAI:
		req.Header.Set("Authorization", "Bearer "+j.key)
	case validators.ProbeAnthropic:
		req.Header.Set("x-api-key", j.key)
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &statusError{code: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, maxResponseBytes)
	var models []string
	if j.style == validators.ProbeOllama {
		var tags tagList
		if err := json.NewDecoder(body).Decode(&tags); err != nil {
			return nil, fmt.Errorf("decode %s tags: %w", j.provider, err)
		}
		for _, m := range tags.Models {
			models = append(models, m.Name)
		}
		return models, nil
	}

	var list modelList
	if err := json.NewDecoder(body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode %s models: %w", j.provider, err)
	}
	for _, m := range list.Data {
		models = append(models, m.ID)
	}
	return models, nil
}
