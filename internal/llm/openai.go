package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// OpenAICompatible talks to any chat completions endpoint that follows the
// OpenAI wire format, such as OpenRouter and Groq
type OpenAICompatible struct {
	name    string
	opts    Options
	client  oai.Client
	missing bool
}

// NewOpenAICompatible creates a provider for baseURL. An empty apiKey yields a
// provider whose every call fails with ErrMissingCredential.
func NewOpenAICompatible(name, baseURL, apiKey string, opts Options) *OpenAICompatible {
	p := &OpenAICompatible{name: name, opts: opts, missing: apiKey == ""}
	if p.missing {
		return p
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: opts.Timeout,
		}))
	}

	p.client = oai.NewClient(reqOpts...)
	return p
}

// Name returns the provider name used in logs and metrics
func (p *OpenAICompatible) Name() string {
	return p.name
}

// Complete sends prompt as a single user message
func (p *OpenAICompatible) Complete(ctx context.Context, prompt string) (string, error) {
	if p.missing {
		return "", fmt.Errorf("%s: %w", p.name, ErrMissingCredential)
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.opts.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	}

	if p.opts.Temperature != 0 {
		params.Temperature = param.NewOpt(p.opts.Temperature)
	}
	if p.opts.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(p.opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}
