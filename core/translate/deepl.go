package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultDeepLEndpoint is the free-tier API.
const DefaultDeepLEndpoint = "https://api-free.deepl.com/v2/translate"

// DeepL translates through the DeepL REST API.
type DeepL struct {
	APIKey   string
	Endpoint string
	client   *http.Client
}

// NewDeepL creates a DeepL provider.
func NewDeepL(apiKey, endpoint string, timeout time.Duration) *DeepL {
	if endpoint == "" {
		endpoint = DefaultDeepLEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeepL{APIKey: apiKey, Endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// deeplLang maps language codes to what DeepL accepts. English targets need
// a regional variant.
func deeplLang(code string, target bool) string {
	code = strings.ToUpper(code)
	if target && code == "EN" {
		return "EN-US"
	}
	return code
}

// Translate sends one text to DeepL.
func (d *DeepL) Translate(ctx context.Context, text, source, target string) (string, error) {
	if d.APIKey == "" {
		return "", errors.New("deepl: no API key configured")
	}
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", deeplLang(target, true))
	if source != "" {
		form.Set("source_lang", deeplLang(source, false))
	}
	form.Set("preserve_formatting", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: creating request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepl: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepl: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out deeplResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("deepl: decoding response: %w", err)
	}
	if len(out.Translations) == 0 {
		return "", errors.New("deepl: empty response")
	}
	return out.Translations[0].Text, nil
}
