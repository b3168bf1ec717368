package storage

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
}

func (m *memStore) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.keys = append(m.keys, key)
	m.data[key] = body
	return nil
}

func TestWebhookArchiver(t *testing.T) {
	store := &memStore{}
	archiver := NewWebhookArchiver(store)

	archiver.Archive("PAYSTACK", "FUND_WALLET-1700000000-abc123", []byte(`{"event":"charge.success"}`))

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		n := len(store.keys)
		store.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("archiver never wrote the payload")
		}
		time.Sleep(10 * time.Millisecond)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	key := store.keys[0]
	if !strings.HasPrefix(key, "webhooks/PAYSTACK/FUND_WALLET-1700000000-abc123/") {
		t.Errorf("unexpected archive key %q", key)
	}
	if !strings.HasSuffix(key, ".json") {
		t.Errorf("archive key missing .json suffix: %q", key)
	}
	if string(store.data[key]) != `{"event":"charge.success"}` {
		t.Errorf("payload was not stored verbatim: %s", store.data[key])
	}
}

func TestWebhookArchiverNilStore(t *testing.T) {
	// must not panic
	NewWebhookArchiver(nil).Archive("STRIPE", "", []byte("{}"))

	var archiver *WebhookArchiver
	archiver.Archive("STRIPE", "", []byte("{}"))
}
