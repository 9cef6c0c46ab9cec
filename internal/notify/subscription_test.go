package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
)

func TestDecodeRecord(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 42,
		"user_id": "u1",
		"title": "Order shipped",
		"message": "Your order is on the way.",
		"type": "order",
		"data": {"order_id": 7},
		"read": false,
		"created_at": "2026-08-30T10:00:00Z"
	}`)

	record, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if record.ID != 42 || record.UserID != "u1" {
		t.Errorf("identity fields = (%d, %q)", record.ID, record.UserID)
	}
	if record.Type != model.NotificationOrder {
		t.Errorf("type = %q, want order", record.Type)
	}
	if record.Read {
		t.Error("read = true, want false")
	}
	if record.Data["order_id"] != float64(7) {
		t.Errorf("data = %v", record.Data)
	}
}

func TestDecodeRecordRejectsMissingID(t *testing.T) {
	if _, err := decodeRecord(json.RawMessage(`{"title":"x"}`)); err == nil {
		t.Error("expected error for payload without id")
	}
}

func TestDecodeRecordRejectsMissingTitle(t *testing.T) {
	if _, err := decodeRecord(json.RawMessage(`{"id":3}`)); err == nil {
		t.Error("expected error for payload without title")
	}
}

func TestDecodeRecordRejectsMalformedJSON(t *testing.T) {
	if _, err := decodeRecord(json.RawMessage(`{"id":`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestDecodeRecordDefaultsUnknownType(t *testing.T) {
	record, err := decodeRecord(json.RawMessage(`{"id":5,"title":"x","type":"flash-sale"}`))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if record.Type != model.NotificationGeneral {
		t.Errorf("type = %q, want general fallback", record.Type)
	}
}

func TestDecodeRecordDefaultsZeroTimestamp(t *testing.T) {
	record, err := decodeRecord(json.RawMessage(`{"id":6,"title":"x"}`))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if record.CreatedAt.IsZero() {
		t.Error("created_at left zero")
	}
	if time.Since(record.CreatedAt) > time.Minute {
		t.Errorf("created_at default not near now: %v", record.CreatedAt)
	}
}
