package clients

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// ModelType is an enum for the available DeepSeek chat models.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel  ModelType = "deepseek-chat"
	ReasonerModel ModelType = "deepseek-reasoner"
)

const deepSeekBaseURL = "https://api.deepseek.com/v1"

// DeepSeek builds a chat-completion client against the OpenAI-compatible
// DeepSeek endpoint. The API key is passed in explicitly; callers resolve
// it from configuration.
func DeepSeek(model ModelType, apiKey string) (*openai.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is not set")
	}

	var modelName string
	switch model {
	case DefaultModel:
		modelName = string(DefaultModel)
	case ReasonerModel:
		modelName = string(ReasonerModel)
	case "":
		modelName = string(DefaultModel)
	default:
		// Pass through unrecognized names so newly released models work
		// without a code change.
		modelName = string(model)
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
		openai.WithBaseURL(deepSeekBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init DeepSeek client: %w", err)
	}

	return llm, nil
}
