package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/voicepost/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// DraftOptions is resolved per request from the user's settings over the
// configured defaults.
type DraftOptions struct {
	SystemPrompt string
	Model        string
	Temperature  float32
	MaxTokens    int
}

type DraftResult struct {
	Mode   models.DraftMode
	Tweets models.DraftTweets
}

type DraftingService interface {
	Draft(ctx context.Context, transcript string, opts DraftOptions) (*DraftResult, error)
}

type draftingService struct {
	client *openai.Client
}

func NewDraftingService(client *openai.Client) DraftingService {
	return &draftingService{client: client}
}

// Draft fails only when the provider cannot be reached or answers with
// nothing. Whatever text comes back is turned into a usable draft.
func (s *draftingService) Draft(ctx context.Context, transcript string, opts DraftOptions) (*DraftResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, validationErrorf("transcript is empty")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: opts.SystemPrompt + "\n\nTRANSCRIPT:\n" + transcript,
			},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %w: %v", ErrDraftingFailed, ErrProvider, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: %w: empty completion", ErrDraftingFailed, ErrProvider)
	}

	return parseDraft(resp.Choices[0].Message.Content), nil
}

type rawDraft struct {
	Mode   string `json:"mode"`
	Tweets []struct {
		Text string `json:"text"`
		// Models report the count as a number or a string; it is
		// recomputed anyway.
		CharCount any `json:"char_count"`
	} `json:"tweets"`
}

// parseDraft never fails. Content that is not the expected JSON object, or
// has no usable tweet in it, becomes a single tweet cut to the tweet limit.
func parseDraft(content string) *DraftResult {
	var raw rawDraft
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		slog.Warn("draft response is not JSON, falling back to truncation", "error", err)
		return fallbackDraft(content)
	}

	tweets := make(models.DraftTweets, 0, len(raw.Tweets))
	for _, tw := range raw.Tweets {
		text := strings.TrimSpace(tw.Text)
		if text == "" {
			continue
		}
		tweets = append(tweets, models.NewDraftTweet(text))
	}
	if len(tweets) == 0 {
		slog.Warn("draft response has no tweets, falling back to truncation")
		return fallbackDraft(content)
	}

	switch models.DraftMode(raw.Mode) {
	case models.DraftModeTweet:
		return &DraftResult{Mode: models.DraftModeTweet, Tweets: tweets[:1]}
	case models.DraftModeThread:
		return &DraftResult{Mode: models.DraftModeThread, Tweets: tweets}
	default:
		return &DraftResult{Mode: models.ModeFor(len(tweets)), Tweets: tweets}
	}
}

func fallbackDraft(content string) *DraftResult {
	text := truncateRunes(strings.TrimSpace(content), models.TweetLimit)
	return &DraftResult{
		Mode:   models.DraftModeTweet,
		Tweets: models.DraftTweets{models.NewDraftTweet(text)},
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
