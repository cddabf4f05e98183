// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package validate checks request inputs before anything is sent to an
// upstream provider: prompt sanitization against an injection denylist,
// and file count / format checks for multi-image edit uploads. All
// checks are local and fail fast — a rejected request never reaches the
// network.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gengate/internal/registry"
)

var (
	ErrInvalidPrompt = errors.New("invalid prompt")
	ErrInvalidFormat = errors.New("unsupported image format")
	ErrTooFewFiles   = errors.New("too few images")
	ErrTooManyFiles  = errors.New("too many images")
)

// Bounds for edit uploads. The OpenAI images/edits endpoint accepts up
// to 16 input images for GPT image models.
const (
	MinImages    = 1
	MaxImages    = 16
	MaxPromptLen = 2000
)

// AllowedExtensions lists the accepted upload extensions in the order
// they are advertised on the edit-info endpoint.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// AllowedFormatsLabel is the human-readable summary used in error
// messages and the edit-info endpoint.
const AllowedFormatsLabel = "PNG, JPEG, GIF, WEBP"

var allowedExtSet = func() map[string]bool {
	set := make(map[string]bool, len(AllowedExtensions))
	for _, ext := range AllowedExtensions {
		set[ext] = true
	}
	return set
}()

var allowedMIMESet = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// promptDenylist holds the injection patterns a prompt must not match.
// Matching is case-insensitive and there is no partial redaction: one
// hit rejects the whole prompt.
var promptDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bexec\s*\(`),
	regexp.MustCompile(`(?i)\bsystem\s*\(`),
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\b.{0,40}\b(previous|prior|above|all)\b.{0,40}\b(instructions?|prompts?|rules?)\b`),
	regexp.MustCompile(`(?i)\boverride\b.{0,40}\bsystem\b.{0,40}\b(prompt|instructions?)\b`),
}

// Prompt trims the input and rejects empty, oversized, or
// denylist-matching prompts. The returned string is the sanitized
// prompt to forward upstream.
func Prompt(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("prompt is empty: %w", ErrInvalidPrompt)
	}
	if utf8.RuneCountInString(trimmed) > MaxPromptLen {
		return "", fmt.Errorf("prompt exceeds %d characters: %w", MaxPromptLen, ErrInvalidPrompt)
	}
	for _, pattern := range promptDenylist {
		if pattern.MatchString(trimmed) {
			return "", fmt.Errorf("prompt contains a forbidden pattern: %w", ErrInvalidPrompt)
		}
	}
	return trimmed, nil
}

// EditUpload validates an edit request before dispatch: the file count
// must be within [MinImages, MaxImages], every filename must carry an
// allowed extension, and the model must be flagged editable in the
// registry.
func EditUpload(filenames []string, model string) error {
	if len(filenames) < MinImages {
		return fmt.Errorf("at least %d image is required (%s): %w", MinImages, AllowedFormatsLabel, ErrTooFewFiles)
	}
	if len(filenames) > MaxImages {
		return fmt.Errorf("at most %d images are allowed: %w", MaxImages, ErrTooManyFiles)
	}
	for _, name := range filenames {
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExtSet[ext] {
			return fmt.Errorf("file %q is not an accepted format (%s): %w", name, AllowedFormatsLabel, ErrInvalidFormat)
		}
	}
	editable := false
	for _, id := range registry.EditableModels() {
		if id == model {
			editable = true
			break
		}
	}
	if !editable {
		return fmt.Errorf("model %q does not support image editing: %w", model, registry.ErrUnknownModel)
	}
	return nil
}

// NormalizeMIME returns the client-supplied content type if it is an
// accepted image MIME type, falling back to image/png otherwise.
// Browsers occasionally send a wrong or empty Content-Type for file
// parts.
func NormalizeMIME(mime string) string {
	if allowedMIMESet[mime] {
		return mime
	}
	return "image/png"
}
