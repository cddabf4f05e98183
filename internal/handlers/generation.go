// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers maps the HTTP surface onto the gateway: form and
// multipart parsing on the way in, JSON encoding and error-to-status
// mapping on the way out. No routing or validation logic lives here.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gengate/internal/ai"
	"gengate/internal/gateway"
	"gengate/internal/registry"
	"gengate/internal/validate"
)

// maxEditBody bounds a multipart edit upload. Sixteen images at a few
// MB each fit comfortably.
const maxEditBody = 64 << 20

// editInfo is the read-only payload of the edit-info endpoint, derived
// once from the registry and the validator's format constants.
type editInfo struct {
	AllowedExtensions []string `json:"allowed_extensions"`
	AllowedFormats    string   `json:"allowed_formats"`
	MinImages         int      `json:"min_images"`
	MaxImages         int      `json:"max_images"`
	Models            []string `json:"models"`
}

// Generation serves the generation API endpoints.
type Generation struct {
	gw       *gateway.Gateway
	editInfo editInfo
}

// NewGeneration creates the handler group. The edit-info view is
// computed here, once, and never mutated at request time.
func NewGeneration(gw *gateway.Gateway) *Generation {
	return &Generation{
		gw: gw,
		editInfo: editInfo{
			AllowedExtensions: validate.AllowedExtensions,
			AllowedFormats:    validate.AllowedFormatsLabel,
			MinImages:         validate.MinImages,
			MaxImages:         validate.MaxImages,
			Models:            registry.EditableModels(),
		},
	}
}

// Models returns every registered model grouped by provider.
func (h *Generation) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.ListModels())
}

// EditInfo returns the formats, bounds, and models accepted by the edit
// endpoint, so the frontend can validate uploads before submitting.
func (h *Generation) EditInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editInfo)
}

// Generate handles POST /{provider}. Form fields: prompt, model,
// optional conversation_id and use_summary_context.
func (h *Generation) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	useSummary, _ := strconv.ParseBool(r.FormValue("use_summary_context"))

	resp, err := h.gw.Generate(r.Context(), gateway.Request{
		Provider:          chi.URLParam(r, "provider"),
		Model:             r.FormValue("model"),
		Prompt:            r.FormValue("prompt"),
		ConversationID:    r.FormValue("conversation_id"),
		UseSummaryContext: useSummary,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Edit handles POST /openai/edit. Multipart fields: prompt, model, and
// 1–16 "images" file parts. Uploads are fully buffered before
// validation; the count bound keeps memory use small.
func (h *Generation) Edit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBody)
	if err := r.ParseMultipartForm(maxEditBody); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	var files []ai.ImageFile
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read upload %q", fh.Filename))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read upload %q", fh.Filename))
				return
			}
			files = append(files, ai.ImageFile{
				Name: fh.Filename,
				MIME: validate.NormalizeMIME(fh.Header.Get("Content-Type")),
				Data: data,
			})
		}
	}

	resp, err := h.gw.Edit(r.Context(), gateway.EditRequest{
		Provider: string(registry.OpenAI),
		Model:    r.FormValue("model"),
		Prompt:   r.FormValue("prompt"),
		Files:    files,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// fail maps an error to its HTTP status. Validation failures are client
// errors; an unimplemented capability is 501; anything that crossed the
// network to a provider is reported as a bad gateway.
func (h *Generation) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("generation request failed",
			"path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validate.ErrInvalidPrompt),
		errors.Is(err, validate.ErrInvalidFormat),
		errors.Is(err, validate.ErrTooFewFiles),
		errors.Is(err, validate.ErrTooManyFiles),
		errors.Is(err, registry.ErrUnknownModel),
		errors.Is(err, registry.ErrUnsupportedProvider):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}
