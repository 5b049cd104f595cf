package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 120 * time.Second
	retryDelay     = 1 * time.Second
)

// Config holds everything the OpenAI-backed client needs. BaseURL is
// optional and exists for API-compatible gateways.
type Config struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	VisionModel       string
	EmbeddingModel    string
	ImageModel        string
	SpeechModel       string
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int
	Timeout           time.Duration
}

// ChatRequest is one chat completion call. JSONMode asks the API to
// constrain output to a JSON object, which ExtractJSON then parses.
type ChatRequest struct {
	System      string
	User        string
	History     []openai.ChatCompletionMessage
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// VisionRequest is a chat completion over an image plus an instruction.
type VisionRequest struct {
	System      string
	Instruction string
	ImageURL    string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// ImageRequest is one image generation call against the Images API.
type ImageRequest struct {
	Prompt string
	Size   string
}

// SpeechRequest is one text-to-speech call.
type SpeechRequest struct {
	Text  string
	Voice string
	Speed float64
}

// ChatModel is the text-generation surface consumed by the planner, the
// segment generator, the drawing analyzer, and the assistant.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Vision(ctx context.Context, req VisionRequest) (string, error)
}

// EmbeddingModel turns texts into vectors for the memory store.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageModel renders one image per call; the illustration queue sits on top.
type ImageModel interface {
	Image(ctx context.Context, req ImageRequest) ([]byte, error)
}

// SpeechModel renders narration audio for a page of story text.
type SpeechModel interface {
	Speech(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// OpenAIClient implements all four model surfaces against the OpenAI API.
// Every call goes through the shared rate limiter and the retry loop.
type OpenAIClient struct {
	client  *openai.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewOpenAIClient builds the client. Zero-valued config fields get
// serviceable defaults; only the API key is required.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.ChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retryDelay
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 2),
	}
}

// Chat sends a chat completion request and returns the raw text content.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, req.History...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return c.completeWithRetry(ctx, apiReq)
}

// Vision sends a chat completion over an image URL and an instruction.
func (c *OpenAIClient) Vision(ctx context.Context, req VisionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Instruction},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    req.ImageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	})

	apiReq := openai.ChatCompletionRequest{
		Model:       c.cfg.VisionModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return c.completeWithRetry(ctx, apiReq)
}

func (c *OpenAIClient) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warnf("[LLM] retrying chat completion (attempt %d): %v", attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%w: completion returned no choices", ErrGenerationParse)
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !isRetryable(lastErr) {
		return "", fmt.Errorf("chat completion: %w", lastErr)
	}
	return "", fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

// Embed turns texts into embedding vectors, preserving input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Image renders one image and returns the decoded bytes.
func (c *OpenAIClient) Image(ctx context.Context, req ImageRequest) ([]byte, error) {
	if req.Size == "" {
		req.Size = openai.CreateImageSize1024x1024
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          c.cfg.ImageModel,
		Size:           req.Size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image response had no data")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}

// Speech renders narration audio (mp3) for the given text.
func (c *OpenAIClient) Speech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if req.Voice == "" {
		req.Voice = string(openai.VoiceNova)
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech payload: %w", err)
	}
	return audio, nil
}

// isRetryable treats rate limits, server-side failures, and transport
// hiccups as transient. Bad requests and auth failures are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}
