package service

import (
	config "github.com/maheshrc27/voicepost/configs"
	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAIClient builds the client shared by transcription, drafting and
// the health check.
func NewOpenAIClient(cfg config.Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
