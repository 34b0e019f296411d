package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTranslateEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator uses the unauthenticated translate_a/single endpoint so
// short label texts can be localized without a billing account.
type GoogleTranslator struct {
	endpoint string
	client   *http.Client
}

func NewGoogleTranslator(endpoint string) *GoogleTranslator {
	if endpoint == "" {
		endpoint = defaultTranslateEndpoint
	}
	return &GoogleTranslator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *GoogleTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "en")
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate status %d", resp.StatusCode)
	}

	// Response shape is [[["<translated>","<source>",...],...],...].
	var parsed []json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed) == 0 {
		return "", fmt.Errorf("decode translate response")
	}
	var sentences [][]json.RawMessage
	if err := json.Unmarshal(parsed[0], &sentences); err != nil {
		return "", fmt.Errorf("decode translate sentences")
	}

	var out strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var chunk string
		if err := json.Unmarshal(sentence[0], &chunk); err != nil {
			continue
		}
		out.WriteString(chunk)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty translation")
	}
	return out.String(), nil
}
