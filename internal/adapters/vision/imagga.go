package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imagelens/backend/internal/domain"
)

const defaultImaggaEndpoint = "https://api.imagga.com/v2/tags"

// ImaggaDetector calls the Imagga tagging API with HTTP basic auth and an
// image_base64 form upload. Imagga reports confidence as 0-100; it is scaled
// to 0-1 to match the rest of the pipeline.
type ImaggaDetector struct {
	endpoint  string
	apiKey    string
	apiSecret string
	maxTags   int
	client    *http.Client
}

func NewImaggaDetector(endpoint, apiKey, apiSecret string) *ImaggaDetector {
	if endpoint == "" {
		endpoint = defaultImaggaEndpoint
	}
	return &ImaggaDetector{
		endpoint:  endpoint,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		maxTags:   10,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *ImaggaDetector) Provider() string { return "imagga" }

type imaggaTagsResponse struct {
	Result struct {
		Tags []struct {
			Confidence float64           `json:"confidence"`
			Tag        map[string]string `json:"tag"`
		} `json:"tags"`
	} `json:"result"`
	Status struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"status"`
}

func (d *ImaggaDetector) DetectLabels(ctx context.Context, image []byte) ([]domain.Label, error) {
	form := url.Values{}
	form.Set("image_base64", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(d.apiKey, d.apiSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagga request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagga status %d", resp.StatusCode)
	}

	var parsed imaggaTagsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode imagga response: %w", err)
	}

	tags := parsed.Result.Tags
	if len(tags) > d.maxTags {
		tags = tags[:d.maxTags]
	}
	labels := make([]domain.Label, 0, len(tags))
	for _, t := range tags {
		name := t.Tag["en"]
		if name == "" {
			for _, v := range t.Tag {
				name = v
				break
			}
		}
		labels = append(labels, domain.Label{
			Name:       name,
			Confidence: math.Round(t.Confidence) / 100,
		})
	}
	return labels, nil
}
