package completion

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prostat/joule-agent/internal/httpkit"
)

// bestModelCacheKey stores the probe result in the session cache.
const bestModelCacheKey = "completion.bestModel"

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// probedBestModel returns the best model the provider currently serves,
// resolving at most once per cache window. Concurrent callers share one
// probe. Returns "" when probing is unavailable or fails; resolution then
// falls through to the stored preference or default.
func (c *Client) probedBestModel(ctx context.Context, apiKey string) string {
	if c.cache == nil {
		return ""
	}
	if v, ok := c.cache.Get(bestModelCacheKey); ok {
		if m, ok := v.(string); ok {
			return m
		}
	}

	v, err, _ := c.sf.Do(bestModelCacheKey, func() (any, error) {
		// Re-check under the flight: a concurrent winner may have
		// populated the cache while this call waited.
		if v, ok := c.cache.Get(bestModelCacheKey); ok {
			return v, nil
		}
		m, err := c.probe(ctx, apiKey)
		if err != nil {
			return "", err
		}
		c.cache.Set(bestModelCacheKey, m, c.probeTTL)
		return m, nil
	})
	if err != nil {
		c.log.Debug("model probe failed", "error", err)
		return ""
	}
	m, _ := v.(string)
	return m
}

// probe lists the provider's models and picks the best available: the
// configured default if served, else the first fallback that is.
func (c *Client) probe(ctx context.Context, apiKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{Status: resp.StatusCode, Msg: httpkit.ReadErrorBody(resp.Body, 512)}
	}

	var out modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	served := make(map[string]bool, len(out.Data))
	for _, m := range out.Data {
		served[m.ID] = true
	}
	if served[c.defaultModel] {
		return c.defaultModel, nil
	}
	for _, m := range c.fallbacks {
		if served[m] {
			return m, nil
		}
	}
	return "", &EmptyResponseError{Model: c.defaultModel}
}
