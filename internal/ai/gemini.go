// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gengate/internal/convo"
	"gengate/internal/registry"
)

// geminiService implements Service over the Google Gemini REST API
// (POST /v1beta/models/{model}:generateContent). Image generation is
// not implemented: the upstream Imagen path has no stable documented
// response shape for API-key access, so it fails with ErrNotImplemented
// instead of guessing.
type geminiService struct {
	cfg     Config
	client  *http.Client
	history convo.Store
}

// newGemini creates the Gemini adapter.
func newGemini(cfg Config, history convo.Store) *geminiService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &geminiService{
		cfg:     cfg,
		client:  &http.Client{Timeout: 120 * time.Second},
		history: history,
	}
}

func (s *geminiService) Name() string { return string(registry.Gemini) }

// ResolveKind delegates to the registry scoped to Gemini.
func (s *geminiService) ResolveKind(model string) (registry.Kind, error) {
	return registry.ResolveKind(registry.Gemini, model)
}

// Generate routes text models to generateContent. Image models are
// registered but explicitly unimplemented.
func (s *geminiService) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	kind, err := s.ResolveKind(req.Model)
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	switch kind {
	case registry.KindText:
		return s.generateText(ctx, req)
	case registry.KindImage:
		return nil, fmt.Errorf("gemini: image generation with model %q: %w", req.Model, ErrNotImplemented)
	}
	return nil, fmt.Errorf("gemini: model kind %q not supported", kind)
}

// generateText calls generateContent, carrying the conversation history
// as alternating user/model contents, or as a system instruction when
// summary mode is requested.
func (s *geminiService) generateText(ctx context.Context, req GenerateRequest) (*Result, error) {
	var history []convo.Message
	if req.ConversationID != "" {
		var err error
		history, err = s.history.History(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("gemini: load conversation: %w", err)
		}
	}

	body := geminiRequest{}
	if req.UseSummaryContext && len(history) > 0 {
		summary, err := s.summarize(ctx, history, req.Model)
		if err != nil {
			return nil, err
		}
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: "Summary of the conversation so far:\n" + summary}},
		}
		body.Contents = []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		}
	} else {
		for _, m := range history {
			role := "user"
			if m.Role == convo.RoleAssistant {
				role = "model"
			}
			body.Contents = append(body.Contents, geminiContent{
				Role:  role,
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		})
	}

	content, err := s.generateContent(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}

	if req.ConversationID != "" {
		err := s.history.Append(ctx, req.ConversationID,
			convo.Message{Role: convo.RoleUser, Content: req.Prompt},
			convo.Message{Role: convo.RoleAssistant, Content: content},
		)
		if err != nil {
			slog.Warn("gemini: conversation append failed",
				"conversation_id", req.ConversationID, "error", err)
		}
	}

	return &Result{
		Provider: registry.Gemini,
		Model:    req.Model,
		Content:  content,
	}, nil
}

// summarize condenses the history into one paragraph using the same model.
func (s *geminiService) summarize(ctx context.Context, history []convo.Message, model string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("Briefly summarize this conversation, preserving key facts and context. Summary:\n\n")
	for _, m := range history {
		buf.WriteString(m.Role + ": " + m.Content + "\n")
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: buf.String()}}},
		},
	}

	summary, err := s.generateContent(ctx, model, body)
	if err != nil {
		return "", fmt.Errorf("gemini: summarize history: %w", err)
	}
	return summary, nil
}

// generateContent performs the HTTP call and extracts the first text
// part of the first candidate.
func (s *geminiService) generateContent(ctx context.Context, model string, body geminiRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.cfg.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("gemini unmarshal: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("gemini: no text in response")
}

// --- Gemini API types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}
