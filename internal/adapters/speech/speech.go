// Package speech is a client for the Azure Speech short-audio REST endpoint
// with pronunciation assessment enabled.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/pkg/logger"
)

const (
	defaultLanguage   = "en-US"
	defaultSampleRate = 16000
	defaultTimeout    = 60 * time.Second
	maxErrorBody      = 512
)

// Client posts recordings to the speech service and decodes the detailed
// assessment JSON.
type Client struct {
	key        string
	endpoint   string
	language   string
	sampleRate int
	httpClient *http.Client
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the regional endpoint. The value is the base URL up
// to, but not including, the query string.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithLanguage sets the recognition locale.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithSampleRate declares the sample rate of the WAV bodies.
func WithSampleRate(rate int) Option {
	return func(c *Client) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// RegionEndpoint returns the short-audio recognition URL for region.
func RegionEndpoint(region string) string {
	return "https://" + region + ".stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1"
}

// New returns a Client for the given subscription key and region.
func New(key, region string, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		key:        key,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Nop(),
	}
	if region != "" {
		c.endpoint = RegionEndpoint(region)
	}
	for _, o := range opts {
		o(c)
	}
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: region or endpoint required", ErrNotConfigured)
	}
	return c, nil
}

type assessmentParams struct {
	ReferenceText           string `json:"ReferenceText"`
	GradingSystem           string `json:"GradingSystem"`
	Granularity             string `json:"Granularity"`
	Dimension               string `json:"Dimension"`
	EnableMiscue            bool   `json:"EnableMiscue"`
	EnableProsodyAssessment bool   `json:"EnableProsodyAssessment"`
}

func assessmentHeader(reference string) (string, error) {
	b, err := json.Marshal(assessmentParams{
		ReferenceText:           reference,
		GradingSystem:           "HundredMark",
		Granularity:             "Phoneme",
		Dimension:               "Comprehensive",
		EnableMiscue:            true,
		EnableProsodyAssessment: true,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("language", c.language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Assess scores wav against referenceText. It returns the decoded result and
// the raw response body, which callers persist as-is.
func (c *Client) Assess(ctx context.Context, wav []byte, referenceText string) (*assessment.Result, []byte, error) {
	header, err := assessmentHeader(referenceText)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode parameters: %v", ErrAssessment, err)
	}
	endpoint, err := c.requestURL()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: endpoint: %v", ErrAssessment, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wav))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create request: %v", ErrAssessment, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate="+strconv.Itoa(c.sampleRate))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Pronunciation-Assessment", header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: http request: %w", ErrAssessment, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response body: %v", ErrAssessment, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: service returned HTTP %d: %s", ErrAssessment, resp.StatusCode, truncate(data))
	}

	res, err := assessment.Parse(data)
	if err != nil {
		return nil, data, err
	}
	if res.RecognitionStatus != assessment.StatusSuccess {
		return nil, data, fmt.Errorf("%w: %w: status %q", ErrAssessment, ErrNoMatch, res.RecognitionStatus)
	}

	c.log.Debug(ctx, "assessment received",
		logger.Int("bytes", len(wav)),
		logger.Duration("latency", time.Since(start)),
		logger.String("display", res.DisplayText),
	)
	return res, data, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(bytes.TrimSpace(b))
}
