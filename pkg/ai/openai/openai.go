package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/statutelab/lexgraph/pkg/ai"
)

// FactOpenAIClient is an OpenAI-compatible backend for fact extraction. It
// works against api.openai.com and against any compatible endpoint when
// ChatURL is set.
//
// A FactOpenAIClient should be created using NewFactOpenAIClient.
type FactOpenAIClient struct {
	extractionModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

var _ ai.FactAIClient = (*FactOpenAIClient)(nil)

// NewFactOpenAIClientParams configures a FactOpenAIClient.
//
// ExtractionModel is the default model for extraction calls. ChatURL and
// ChatKey configure the chat/completion API endpoint; an empty ChatURL means
// the official OpenAI endpoint.
type NewFactOpenAIClientParams struct {
	ExtractionModel string
	ChatURL         string
	ChatKey         string
}

// NewFactOpenAIClient creates a FactOpenAIClient configured with the provided
// parameters.
func NewFactOpenAIClient(params NewFactOpenAIClientParams) *FactOpenAIClient {
	return &FactOpenAIClient{
		extractionModel: params.ExtractionModel,
		chatURL:         params.ChatURL,
		chatKey:         params.ChatKey,

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

func (c *FactOpenAIClient) addMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// Metrics returns the token usage accumulated across all calls so far.
func (c *FactOpenAIClient) Metrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
