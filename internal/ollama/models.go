package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels lists all available Ollama models
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// HasModel reports whether a model matching name (ignoring the tag suffix)
// is available on the backend.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}

	base := strings.SplitN(name, ":", 2)[0]
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), strings.ToLower(base)) {
			return true, nil
		}
	}
	return false, nil
}

// ResolveModel returns the preferred model if it is available, otherwise the
// fallback, otherwise an error listing what the backend does have.
func (c *Client) ResolveModel(ctx context.Context, preferred, fallback string) (string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("ollama not reachable: %w", err)
	}

	for _, candidate := range []string{preferred, fallback} {
		if candidate == "" {
			continue
		}
		base := strings.ToLower(strings.SplitN(candidate, ":", 2)[0])
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.Name), base) {
				return m.Name, nil
			}
		}
	}

	available := make([]string, 0, len(models))
	for _, m := range models {
		available = append(available, m.Name)
	}
	return "", fmt.Errorf("model %q not found (available: %s)", preferred, strings.Join(available, ", "))
}
