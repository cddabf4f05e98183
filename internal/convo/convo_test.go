// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package convo

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// storeTests runs the Store contract against any implementation.
func storeTests(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("unknown conversation yields empty history", func(t *testing.T) {
		msgs, err := s.History(ctx, "nope")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("got %d messages, want 0", len(msgs))
		}
	})

	t.Run("append then read back in order", func(t *testing.T) {
		err := s.Append(ctx, "conv-1",
			Message{Role: RoleUser, Content: "hello"},
			Message{Role: RoleAssistant, Content: "hi there"},
		)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := s.Append(ctx, "conv-1", Message{Role: RoleUser, Content: "and again"}); err != nil {
			t.Fatalf("Append: %v", err)
		}

		msgs, err := s.History(ctx, "conv-1")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		want := []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi there"},
			{Role: RoleUser, Content: "and again"},
		}
		if len(msgs) != len(want) {
			t.Fatalf("got %d messages, want %d", len(msgs), len(want))
		}
		for i := range want {
			if msgs[i] != want[i] {
				t.Errorf("message[%d]: got %+v, want %+v", i, msgs[i], want[i])
			}
		}
	})

	t.Run("conversations are isolated", func(t *testing.T) {
		if err := s.Append(ctx, "conv-a", Message{Role: RoleUser, Content: "a"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := s.Append(ctx, "conv-b", Message{Role: RoleUser, Content: "b"}); err != nil {
			t.Fatalf("Append: %v", err)
		}

		msgs, err := s.History(ctx, "conv-a")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(msgs) != 1 || msgs[0].Content != "a" {
			t.Errorf("conv-a history: got %+v", msgs)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeTests(t, NewMemory())
}

func TestMemoryStoreHistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Append(ctx, "c", Message{Role: RoleUser, Content: "original"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, _ := m.History(ctx, "c")
	msgs[0].Content = "mutated"

	again, _ := m.History(ctx, "c")
	if again[0].Content != "original" {
		t.Error("History returned shared state: mutation leaked into the store")
	}
}

func TestMemoryStoreConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Append(ctx, "shared", Message{Role: RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	msgs, err := m.History(ctx, "shared")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 20 {
		t.Errorf("got %d messages, want 20", len(msgs))
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	storeTests(t, NewRedis(client))
}

func TestRedisStoreSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedis(client)
	if err := s.Append(context.Background(), "ttl-conv", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if ttl := mr.TTL("convo:ttl-conv"); ttl != historyTTL {
		t.Errorf("ttl: got %v, want %v", ttl, historyTTL)
	}
}
