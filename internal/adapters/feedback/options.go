package feedback

import (
	"net/http"

	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/pkg/logger"
	"golang.org/x/text/language"
)

// Option configures a Coach.
type Option func(*config)

type config struct {
	model       string
	temperature float64
	maxTokens   int
	baseURL     string
	azureURL    string
	apiVersion  string
	lang        language.Tag
	httpClient  *http.Client
	label       func(scoring.Category) string
	log         logger.Logger
}

// WithModel sets the chat model (or Azure deployment) name.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *config) { c.temperature = t }
}

// WithMaxTokens caps the length of the coaching reply.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithAzure switches the client to an Azure OpenAI resource.
func WithAzure(endpoint, apiVersion string) Option {
	return func(c *config) {
		c.azureURL = endpoint
		if apiVersion != "" {
			c.apiVersion = apiVersion
		}
	}
}

// WithLanguage sets the language the tutor answers in.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) { c.lang = tag }
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithLabeler names categories in the prompt.
func WithLabeler(fn func(scoring.Category) string) Option {
	return func(c *config) {
		if fn != nil {
			c.label = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
