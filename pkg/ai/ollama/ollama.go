package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"

	"github.com/statutelab/lexgraph/pkg/ai"
)

// FactOllamaClient implements ai.FactAIClient against a locally-hosted or
// remote Ollama server.
type FactOllamaClient struct {
	extractionModel string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

var _ ai.FactAIClient = (*FactOllamaClient)(nil)

// NewFactOllamaClientParams configures a FactOllamaClient. An empty BaseURL
// means the default local Ollama endpoint; ApiKey is sent as a bearer token
// when set, for proxied deployments.
type NewFactOllamaClientParams struct {
	ExtractionModel string
	BaseURL         string
	ApiKey          string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so the original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewFactOllamaClient creates a FactOllamaClient connecting to the Ollama
// server at params.BaseURL.
func NewFactOllamaClient(params NewFactOllamaClientParams) (*FactOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	return &FactOllamaClient{
		extractionModel: params.ExtractionModel,
		Client:          api.NewClient(u, httpClient),
	}, nil
}

func (c *FactOllamaClient) addMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// Metrics returns the token usage accumulated across all calls so far.
func (c *FactOllamaClient) Metrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
