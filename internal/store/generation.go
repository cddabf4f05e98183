// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store persists a history of generation and edit requests for
// audit and debugging. Recording is best-effort: the gateway never
// fails a request because its history row could not be written.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request outcomes.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Operations recorded.
const (
	OpGenerate = "generate"
	OpEdit     = "edit"
)

// Generation is one recorded request.
type Generation struct {
	ID        uuid.UUID
	Provider  string
	Model     string
	Kind      string
	Operation string
	Prompt    string
	Status    string
	Error     string
	CreatedAt time.Time
}

// GenerationStore handles all generation-history database operations.
type GenerationStore struct {
	db *sql.DB
}

// NewGenerationStore creates a store with the given database connection.
func NewGenerationStore(db *sql.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// Record inserts one history row. The caller supplies everything except
// ID and CreatedAt, which are filled in here.
func (s *GenerationStore) Record(ctx context.Context, g *Generation) error {
	g.ID = uuid.New()
	g.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, provider, model, kind, operation, prompt, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, g.ID, g.Provider, g.Model, g.Kind, g.Operation, g.Prompt, g.Status, g.Error, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// Recent returns the newest history rows, most recent first.
func (s *GenerationStore) Recent(ctx context.Context, limit int) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, model, kind, operation, prompt, status, error, created_at
		FROM generations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent generations: %w", err)
	}
	defer rows.Close()

	var items []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(
			&g.ID, &g.Provider, &g.Model, &g.Kind, &g.Operation,
			&g.Prompt, &g.Status, &g.Error, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		items = append(items, g)
	}
	return items, rows.Err()
}
