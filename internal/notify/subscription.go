package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
)

// decodeRecord parses a raw realtime row payload into a strict
// Notification at the subscription boundary. Malformed payloads are
// rejected here with an error (the caller logs and drops them) so the
// rest of the store never handles untrusted shapes.
func decodeRecord(raw json.RawMessage) (model.Notification, error) {
	var record model.Notification
	if err := json.Unmarshal(raw, &record); err != nil {
		return model.Notification{}, fmt.Errorf("decoding realtime record: %w", err)
	}

	if record.ID <= 0 {
		return model.Notification{}, fmt.Errorf("realtime record missing id")
	}
	if record.Title == "" {
		return model.Notification{}, fmt.Errorf("realtime record %d missing title", record.ID)
	}

	if !record.Type.Valid() {
		record.Type = model.NotificationGeneral
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	return record, nil
}
