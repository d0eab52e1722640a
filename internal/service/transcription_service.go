package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/voicepost/configs"
	openai "github.com/sashabaranov/go-openai"
)

type Transcription struct {
	Text            string
	Confidence      float64
	Language        string
	DurationSeconds float64
}

type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (*Transcription, error)
}

type transcriptionService struct {
	client *openai.Client
	model  string
}

func NewTranscriptionService(cfg config.Config, client *openai.Client) TranscriptionService {
	model := cfg.OpenAI.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	return &transcriptionService{client: client, model: model}
}

func (s *transcriptionService) Transcribe(ctx context.Context, audio []byte, mimeHint string) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %w: empty audio", ErrTranscriptionFailed, ErrValidation)
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: "recording." + audioExtension(mimeHint, audio),
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %w: %v", ErrTranscriptionFailed, ErrProvider, err)
	}

	logprobs := make([]float64, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		logprobs = append(logprobs, seg.AvgLogprob)
	}

	return &Transcription{
		Text:            strings.TrimSpace(resp.Text),
		Confidence:      confidenceFromLogprobs(logprobs),
		Language:        resp.Language,
		DurationSeconds: resp.Duration,
	}, nil
}

// confidenceFromLogprobs is exp(mean(avg_logprob)) clamped to [0,1], so the
// stored value reads as a probability. No segments means no evidence: 0.
func confidenceFromLogprobs(logprobs []float64) float64 {
	if len(logprobs) == 0 {
		return 0
	}
	var sum float64
	for _, lp := range logprobs {
		sum += lp
	}
	c := math.Exp(sum / float64(len(logprobs)))
	return math.Max(0, math.Min(1, c))
}

var audioExtensions = map[string]string{
	"audio/webm":  "webm",
	"video/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/m4a":   "m4a",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
}

// audioExtension names the upload so the provider can pick a decoder. The
// hint wins; otherwise the bytes are sniffed; webm is what browsers record.
func audioExtension(mimeHint string, audio []byte) string {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeHint, ";", 2)[0]))
	if ext, ok := audioExtensions[base]; ok {
		return ext
	}
	if kind, err := filetype.Match(audio); err == nil && kind != filetype.Unknown {
		if ext, ok := audioExtensions[kind.MIME.Value]; ok {
			return ext
		}
	}
	return "webm"
}
