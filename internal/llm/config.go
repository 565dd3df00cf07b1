// Package llm provides the generator abstraction over external completion providers.
// It is the only package that performs network I/O against a model endpoint.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction, basic summarization
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: parsing, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long structured reports
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any endpoint speaking the OpenAI chat-completions protocol
	ProviderOpenAI Provider = "openai"
)

// DefaultOpenAIBaseURL is used when an OpenAI-compatible provider has no base URL
const DefaultOpenAIBaseURL = "https://api.openai.com"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
		MaxTokens:   16384,
	}
}

// DefaultOpenAIConfig returns the default configuration for an OpenAI-compatible endpoint
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		},
		BaseURL:     DefaultOpenAIBaseURL,
		Temperature: 0.2,
		MaxTokens:   16384,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
