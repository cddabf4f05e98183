package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gengate/internal/convo"
	"gengate/internal/registry"
)

// openAIService implements Service and ImageEditor over the OpenAI REST
// API: chat completions for text models, images/generations and
// images/edits for image models.
type openAIService struct {
	cfg     Config
	client  *http.Client
	history convo.Store
}

// newOpenAI creates the OpenAI adapter.
func newOpenAI(cfg Config, history convo.Store) *openAIService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &openAIService{
		cfg: cfg,
		// Image generation and edits routinely take a minute or more.
		client:  &http.Client{Timeout: 180 * time.Second},
		history: history,
	}
}

func (s *openAIService) Name() string { return string(registry.OpenAI) }

// ResolveKind delegates to the registry scoped to OpenAI.
func (s *openAIService) ResolveKind(model string) (registry.Kind, error) {
	return registry.ResolveKind(registry.OpenAI, model)
}

// Generate routes to chat completions or image generation depending on
// the model's registered kind.
func (s *openAIService) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	kind, err := s.ResolveKind(req.Model)
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	switch kind {
	case registry.KindText:
		return s.generateText(ctx, req)
	case registry.KindImage:
		return s.generateImage(ctx, req)
	}
	return nil, fmt.Errorf("openai: model kind %q not supported", kind)
}

// generateText calls POST /chat/completions, optionally carrying the
// conversation history (full or summarized) ahead of the new prompt.
func (s *openAIService) generateText(ctx context.Context, req GenerateRequest) (*Result, error) {
	var history []convo.Message
	if req.ConversationID != "" {
		var err error
		history, err = s.history.History(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("openai: load conversation: %w", err)
		}
	}

	var messages []openAIMessage
	if req.UseSummaryContext && len(history) > 0 {
		summary, err := s.summarize(ctx, history, req.Model)
		if err != nil {
			return nil, err
		}
		messages = []openAIMessage{
			{Role: "system", Content: "Summary of the conversation so far:\n" + summary},
			{Role: "user", Content: req.Prompt},
		}
	} else {
		for _, m := range history {
			role := "user"
			if m.Role == convo.RoleAssistant {
				role = "assistant"
			}
			messages = append(messages, openAIMessage{Role: role, Content: m.Content})
		}
		messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})
	}

	body := openAIChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: 1,
	}

	var out openAIChatResponse
	if err := s.post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	content := out.Choices[0].Message.Content

	if req.ConversationID != "" {
		err := s.history.Append(ctx, req.ConversationID,
			convo.Message{Role: convo.RoleUser, Content: req.Prompt},
			convo.Message{Role: convo.RoleAssistant, Content: content},
		)
		if err != nil {
			// The generation succeeded; losing one history turn is
			// preferable to failing the request.
			slog.Warn("openai: conversation append failed",
				"conversation_id", req.ConversationID, "error", err)
		}
	}

	return &Result{
		Provider: registry.OpenAI,
		Model:    req.Model,
		Content:  content,
	}, nil
}

// summarize condenses the history into one paragraph using the same
// model, so a long conversation fits a single system message.
func (s *openAIService) summarize(ctx context.Context, history []convo.Message, model string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("Briefly summarize this conversation, preserving key facts and context. Summary:\n\n")
	for _, m := range history {
		buf.WriteString(m.Role + ": " + m.Content + "\n")
	}

	body := openAIChatRequest{
		Model:       model,
		Messages:    []openAIMessage{{Role: "user", Content: buf.String()}},
		Temperature: 0.3,
		MaxTokens:   500,
	}

	var out openAIChatResponse
	if err := s.post(ctx, "/chat/completions", body, &out); err != nil {
		return "", fmt.Errorf("openai: summarize history: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: summarize history: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}

// generateImage calls POST /images/generations. GPT image models return
// base64 directly (b64_json), no response_format needed.
func (s *openAIService) generateImage(ctx context.Context, req GenerateRequest) (*Result, error) {
	body := openAIImageRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		N:       1,
		Size:    "1024x1024",
		Quality: "high",
	}

	var out openAIImageResponse
	if err := s.post(ctx, "/images/generations", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: no image data in response")
	}

	return &Result{
		Provider:      registry.OpenAI,
		Model:         req.Model,
		ImageBase64:   out.Data[0].B64JSON,
		ImageMIMEType: "image/png",
	}, nil
}

// EditImage calls POST /images/edits with every input encoded as a
// self-contained data URL, input order preserved.
func (s *openAIService) EditImage(ctx context.Context, prompt, model string, images []ImageFile) (*Result, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	refs := make([]openAIImageRef, 0, len(images))
	for _, img := range images {
		refs = append(refs, openAIImageRef{ImageURL: dataURL(img)})
	}

	body := openAIEditRequest{
		Model:   model,
		Prompt:  prompt,
		Images:  refs,
		N:       1,
		Size:    "1024x1024",
		Quality: "high",
	}

	var out openAIImageResponse
	if err := s.post(ctx, "/images/edits", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: no image data in edit response")
	}

	return &Result{
		Provider:      registry.OpenAI,
		Model:         model,
		ImageBase64:   out.Data[0].B64JSON,
		ImageMIMEType: "image/png",
	}, nil
}

// dataURL encodes an upload as data:<mime>;base64,<payload>, the format
// the images/edits endpoint accepts for image_url inputs.
func dataURL(img ImageFile) string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// post performs the HTTP call shared by all OpenAI endpoints.
func (s *openAIService) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("openai unmarshal: %w", err)
	}
	return nil
}

// --- OpenAI API types ---

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type openAIImageRef struct {
	ImageURL string `json:"image_url"`
}

type openAIEditRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Images  []openAIImageRef `json:"images"`
	N       int              `json:"n"`
	Size    string           `json:"size"`
	Quality string           `json:"quality"`
}

type openAIImageResponse struct {
	Data []openAIImageDatum `json:"data"`
}

type openAIImageDatum struct {
	B64JSON string `json:"b64_json"`
}
