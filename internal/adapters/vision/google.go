package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/imagelens/backend/internal/domain"
)

const defaultGoogleEndpoint = "https://vision.googleapis.com"

// GoogleDetector calls the Cloud Vision images:annotate REST endpoint with
// LABEL_DETECTION. The REST surface is used instead of the gRPC SDK so the
// adapter needs only an API key.
type GoogleDetector struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *http.Client
}

func NewGoogleDetector(endpoint, apiKey string) *GoogleDetector {
	if endpoint == "" {
		endpoint = defaultGoogleEndpoint
	}
	return &GoogleDetector{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: 10,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *GoogleDetector) Provider() string { return "google" }

type googleImage struct {
	Content string `json:"content"`
}

type googleFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type googleAnnotateItem struct {
	Image    googleImage     `json:"image"`
	Features []googleFeature `json:"features"`
}

type googleAnnotateRequest struct {
	Requests []googleAnnotateItem `json:"requests"`
}

type googleLabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type googleAnnotateResponse struct {
	Responses []struct {
		LabelAnnotations []googleLabelAnnotation `json:"labelAnnotations"`
		Error            *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (d *GoogleDetector) DetectLabels(ctx context.Context, image []byte) ([]domain.Label, error) {
	raw, err := json.Marshal(googleAnnotateRequest{
		Requests: []googleAnnotateItem{{
			Image: googleImage{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []googleFeature{
				{Type: "LABEL_DETECTION", MaxResults: d.maxResults},
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	annotateURL := d.endpoint + "/v1/images:annotate?key=" + url.QueryEscape(d.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, annotateURL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google vision status %d", resp.StatusCode)
	}

	var parsed googleAnnotateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode google vision response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return nil, nil
	}
	if apiErr := parsed.Responses[0].Error; apiErr != nil {
		return nil, fmt.Errorf("google vision: %s", apiErr.Message)
	}

	labels := make([]domain.Label, 0, len(parsed.Responses[0].LabelAnnotations))
	for _, a := range parsed.Responses[0].LabelAnnotations {
		labels = append(labels, domain.Label{
			Name:       a.Description,
			Confidence: math.Round(a.Score*100) / 100,
		})
	}
	return labels, nil
}
