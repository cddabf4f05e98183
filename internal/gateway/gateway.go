// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gateway orchestrates one generation or edit request:
// sanitize the prompt, pick the provider adapter, resolve the model's
// kind through the registry, dispatch, and normalize the heterogeneous
// provider results into one response shape. Requests are handled
// independently with no cross-request mutable state and no automatic
// retries.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gengate/internal/ai"
	"gengate/internal/registry"
	"gengate/internal/storage"
	"gengate/internal/store"
	"gengate/internal/validate"
)

// Services resolves a provider id to its adapter. *ai.Factory satisfies
// it; tests substitute doubles.
type Services interface {
	Service(provider registry.Provider) (ai.Service, error)
}

// Request is one generation call as received from the HTTP layer.
type Request struct {
	Provider          string
	Model             string
	Prompt            string
	ConversationID    string
	UseSummaryContext bool
}

// EditRequest is one multi-image edit call. Files are fully buffered;
// the 1–16 bound keeps worst-case memory small.
type EditRequest struct {
	Provider string
	Model    string
	Prompt   string
	Files    []ai.ImageFile
}

// Response is the normalized output for every provider and kind.
// Exactly one of Content and ImageBase64 is populated.
type Response struct {
	Provider      string `json:"provider"`
	ModelUsed     string `json:"model_used"`
	Content       string `json:"content,omitempty"`
	ImageBase64   string `json:"image_base64,omitempty"`
	ImageMIMEType string `json:"image_mime_type,omitempty"`
}

// Gateway routes validated requests to provider adapters. History and
// archive are optional; when nil the corresponding step is skipped.
type Gateway struct {
	services Services
	history  *store.GenerationStore
	archive  *storage.Archive
}

// New creates a Gateway.
func New(services Services, history *store.GenerationStore, archive *storage.Archive) *Gateway {
	return &Gateway{services: services, history: history, archive: archive}
}

// Generate validates and dispatches one generation request. All
// validation failures surface before any network call.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt, err := validate.Prompt(req.Prompt)
	if err != nil {
		return nil, err
	}

	provider, err := registry.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	svc, err := g.services.Service(provider)
	if err != nil {
		return nil, err
	}

	kind, err := svc.ResolveKind(req.Model)
	if err != nil {
		return nil, err
	}

	result, err := svc.Generate(ctx, ai.GenerateRequest{
		Model:             req.Model,
		Prompt:            prompt,
		ConversationID:    req.ConversationID,
		UseSummaryContext: req.UseSummaryContext,
	})
	if err != nil {
		perr := &ai.ProviderError{Provider: provider, Model: req.Model, Err: err}
		g.record(ctx, store.OpGenerate, provider, req.Model, kind, prompt, perr)
		return nil, perr
	}

	g.record(ctx, store.OpGenerate, provider, req.Model, kind, prompt, nil)
	g.archiveImage(ctx, result)
	return normalize(kind, result), nil
}

// Edit validates and dispatches one multi-image edit request. The
// target provider must implement the edit capability; in the current
// catalog that is OpenAI only.
func (g *Gateway) Edit(ctx context.Context, req EditRequest) (*Response, error) {
	prompt, err := validate.Prompt(req.Prompt)
	if err != nil {
		return nil, err
	}

	provider, err := registry.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}
	if err := validate.EditUpload(names, req.Model); err != nil {
		return nil, err
	}

	svc, err := g.services.Service(provider)
	if err != nil {
		return nil, err
	}

	editor, ok := svc.(ai.ImageEditor)
	if !ok {
		return nil, fmt.Errorf("provider %q does not support image editing: %w",
			provider, registry.ErrUnsupportedProvider)
	}

	result, err := editor.EditImage(ctx, prompt, req.Model, req.Files)
	if err != nil {
		perr := &ai.ProviderError{Provider: provider, Model: req.Model, Err: err}
		g.record(ctx, store.OpEdit, provider, req.Model, registry.KindImage, prompt, perr)
		return nil, perr
	}

	g.record(ctx, store.OpEdit, provider, req.Model, registry.KindImage, prompt, nil)
	g.archiveImage(ctx, result)
	return normalize(registry.KindImage, result), nil
}

// normalize builds the response shape, populating exactly one of the
// content/image fields according to the resolved kind.
func normalize(kind registry.Kind, result *ai.Result) *Response {
	resp := &Response{
		Provider:  string(result.Provider),
		ModelUsed: result.Model,
	}
	switch kind {
	case registry.KindImage:
		resp.ImageBase64 = result.ImageBase64
		resp.ImageMIMEType = result.ImageMIMEType
	default:
		resp.Content = result.Content
	}
	return resp
}

// record writes one history row. Best-effort: failures are logged, the
// request outcome is unaffected.
func (g *Gateway) record(ctx context.Context, op string, provider registry.Provider, model string, kind registry.Kind, prompt string, callErr error) {
	if g.history == nil {
		return
	}

	rec := &store.Generation{
		Provider:  string(provider),
		Model:     model,
		Kind:      string(kind),
		Operation: op,
		Prompt:    prompt,
		Status:    store.StatusCompleted,
	}
	if callErr != nil {
		rec.Status = store.StatusFailed
		rec.Error = callErr.Error()
	}

	if err := g.history.Record(ctx, rec); err != nil {
		slog.Warn("generation history record failed", "error", err)
	}
}

var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// archiveImage stores an image payload in the configured object
// archive. Best-effort, like record.
func (g *Gateway) archiveImage(ctx context.Context, result *ai.Result) {
	if g.archive == nil || result.ImageBase64 == "" {
		return
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		slog.Warn("image archive skipped: decode failed", "error", err)
		return
	}

	ext, ok := mimeExtensions[result.ImageMIMEType]
	if !ok {
		ext = ".png"
	}
	key := "generations/" + uuid.NewString() + ext

	if err := g.archive.Put(ctx, key, result.ImageMIMEType, data); err != nil {
		slog.Warn("image archive failed", "key", key, "error", err)
		return
	}
	slog.Info("image archived", "key", key, "bytes", len(data))
}
