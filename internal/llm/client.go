package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenerationResult is the outcome of a single code-generation call.
type GenerationResult struct {
	Code       string
	TokensUsed int32
	Model      string
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateCode generates app source code from a fully built prompt.
	// Every failure, including empty completions, returns a *GenerationError.
	GenerateCode(ctx context.Context, prompt string) (*GenerationResult, error)
	// GenerateJSON generates JSON content using the specified model tier
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, int32, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return NewGeminiClient(ctx, config, apiKey)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, NewGenerationError("API key is required", nil)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, NewGenerationError("failed to create Gemini client", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateCode generates app source code using the advanced tier.
func (c *GeminiClient) GenerateCode(ctx context.Context, prompt string) (*GenerationResult, error) {
	modelName := c.config.GetModel(TierAdvanced)
	if modelName == "" {
		return nil, NewGenerationError("no model configured for tier advanced", nil)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.2) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, NewGenerationError("failed to generate content", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	code := CleanCodeBlock(text)
	if strings.TrimSpace(code) == "" {
		return nil, NewGenerationError("model returned an empty completion", nil)
	}

	return &GenerationResult{
		Code:       code,
		TokensUsed: tokensUsed(resp),
		Model:      modelName,
	}, nil
}

// GenerateJSON generates JSON content using the specified model tier
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, int32, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", 0, NewGenerationError("no model configured for tier "+string(tier), nil)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", 0, NewGenerationError("failed to generate content", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", 0, err
	}

	return CleanJSONBlock(text), tokensUsed(resp), nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", NewGenerationError("no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", NewGenerationError("no content in response", nil)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", NewGenerationError("no text parts in response", nil)
	}

	return strings.Join(parts, ""), nil
}

func tokensUsed(resp *genai.GenerateContentResponse) int32 {
	if resp.UsageMetadata == nil {
		return 0
	}
	return resp.UsageMetadata.TotalTokenCount
}
