package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebhookArchiver writes raw webhook payloads to the object store so
// disputed reconciliations can be replayed. Archival is best-effort and
// must never delay or fail webhook acknowledgement.
type WebhookArchiver struct {
	store ObjectStore
}

// NewWebhookArchiver creates an archiver. A nil store disables archival,
// which keeps local development working without bucket credentials.
func NewWebhookArchiver(store ObjectStore) *WebhookArchiver {
	return &WebhookArchiver{store: store}
}

// Archive stores a payload asynchronously under
// webhooks/<gateway>/<reference>/<uuid>.json. Failures are logged and
// swallowed.
func (a *WebhookArchiver) Archive(gateway, reference string, payload []byte) {
	if a == nil || a.store == nil {
		return
	}
	if reference == "" {
		reference = "unmatched"
	}

	key := fmt.Sprintf("webhooks/%s/%s/%s.json", gateway, reference, uuid.New().String())
	body := make([]byte, len(payload))
	copy(body, payload)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.store.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
			log.Warn().
				Err(err).
				Str("gateway", gateway).
				Str("reference", reference).
				Str("key", key).
				Msg("Failed to archive webhook payload")
		}
	}()
}
