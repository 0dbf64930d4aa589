package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"studymate/internal/model"
)

type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	AllowKeyOverride bool
}

// Client talks to any OpenAI-compatible chat endpoint.
type Client struct {
	cfg    Config
	base   *openai.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		base:   newOpenAIClient(cfg.BaseURL, cfg.APIKey),
		logger: logger,
	}
}

func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(clientCfg)
}

func (c *Client) resolve(req Request) (*openai.Client, string, error) {
	modelName := c.cfg.Model
	if strings.TrimSpace(req.Model) != "" {
		modelName = strings.TrimSpace(req.Model)
	}
	if key := strings.TrimSpace(req.APIKey); key != "" && c.cfg.AllowKeyOverride {
		return newOpenAIClient(c.cfg.BaseURL, key), modelName, nil
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, "", ErrMissingCredential
	}
	return c.base, modelName, nil
}

func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	cli, modelName, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("llm_stream_started",
		zap.String("model", modelName),
		zap.Int("history", len(req.History)),
		zap.Int("documents", len(req.Documents)),
	)
	stream, err := cli.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, wrapRemote(err)
	}

	recv := func() (string, error) {
		resp, err := stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Delta.Content, nil
	}
	return NewStream(ctx, recv, func() { _ = stream.Close() }), nil
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	cli, modelName, err := c.resolve(req)
	if err != nil {
		return "", err
	}
	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", wrapRemote(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if turn.Role == model.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	if len(req.Documents) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Prompt,
		})
		return messages
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, doc := range req.Documents {
		parts = append(parts, documentPart(doc))
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
	return messages
}

// documentPart sends text-bearing documents as text so the model can cite
// them by name; everything else goes inline as a data URI.
func documentPart(doc model.Document) openai.ChatMessagePart {
	if !doc.IsImage() && strings.TrimSpace(doc.ExtractedText) != "" {
		return openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("[%s]\n%s", doc.Name, doc.ExtractedText),
		}
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    fmt.Sprintf("data:%s;base64,%s", doc.MimeType, doc.Data),
			Detail: openai.ImageURLDetailAuto,
		},
	}
}

func wrapRemote(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("llm request failed: %w", err)
}

func statusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
