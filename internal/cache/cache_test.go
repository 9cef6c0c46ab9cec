package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
	"github.com/sbabadag/sevapp/tests/testutil"
)

func row(id int64, userID string, read bool, age time.Duration) model.Notification {
	return model.Notification{
		ID:        id,
		UserID:    userID,
		Title:     fmt.Sprintf("Notification %d", id),
		Message:   "body",
		Type:      model.NotificationGeneral,
		Read:      read,
		CreatedAt: time.Now().Add(-age).UTC().Truncate(time.Second),
	}
}

func TestUpsertAndRecentOrdering(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	err := c.Upsert(ctx, []model.Notification{
		row(1, "u1", false, 3*time.Hour),
		row(3, "u1", false, time.Hour),
		row(2, "u1", true, 2*time.Hour),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := c.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	for i, wantID := range []int64{3, 2, 1} {
		if got[i].ID != wantID {
			t.Errorf("row %d id = %d, want %d", i, got[i].ID, wantID)
		}
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	n := row(1, "u1", false, time.Hour)
	if err := c.Upsert(ctx, []model.Notification{n}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n.Read = true
	n.Title = "Updated"
	if err := c.Upsert(ctx, []model.Notification{n}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := c.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if !got[0].Read || got[0].Title != "Updated" {
		t.Errorf("row not replaced: %+v", got[0])
	}
}

func TestRecentScopedToUser(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	err := c.Upsert(ctx, []model.Notification{
		row(1, "u1", false, time.Hour),
		row(2, "u2", false, time.Hour),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := c.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u1" {
		t.Errorf("rows leaked across users: %+v", got)
	}
}

func TestDataPayloadRoundTrip(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	n := row(1, "u1", false, time.Hour)
	n.Data = map[string]any{"order_id": float64(7), "screen": "orders"}
	if err := c.Upsert(ctx, []model.Notification{n}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := c.Recent(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Data["order_id"] != float64(7) || got[0].Data["screen"] != "orders" {
		t.Errorf("data payload = %v", got[0].Data)
	}
}

func TestMarkReadAndMarkAllRead(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	err := c.Upsert(ctx, []model.Notification{
		row(1, "u1", false, 3*time.Hour),
		row(2, "u1", false, 2*time.Hour),
		row(3, "u2", false, time.Hour),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := c.MarkRead(ctx, 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got, _ := c.Recent(ctx, "u1", 10)
	if !got[1].Read || got[0].Read {
		t.Errorf("single mark-read wrong rows: %+v", got)
	}

	if err := c.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	got, _ = c.Recent(ctx, "u1", 10)
	for _, n := range got {
		if !n.Read {
			t.Errorf("row %d unread after mark-all", n.ID)
		}
	}

	other, _ := c.Recent(ctx, "u2", 10)
	if other[0].Read {
		t.Error("mark-all crossed user boundary")
	}
}

func TestClearRemovesOnlyUserRows(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	err := c.Upsert(ctx, []model.Notification{
		row(1, "u1", false, time.Hour),
		row(2, "u2", false, time.Hour),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := c.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	gone, _ := c.Recent(ctx, "u1", 10)
	if len(gone) != 0 {
		t.Errorf("u1 rows remain after clear: %+v", gone)
	}
	kept, _ := c.Recent(ctx, "u2", 10)
	if len(kept) != 1 {
		t.Errorf("u2 rows affected by clear: %+v", kept)
	}
}

func TestUpsertPrunesOldRows(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	var batch []model.Notification
	for i := 1; i <= 210; i++ {
		batch = append(batch, row(int64(i), "u1", false, time.Duration(300-i)*time.Minute))
	}
	if err := c.Upsert(ctx, batch); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := c.Recent(ctx, "u1", 500)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 200 {
		t.Fatalf("got %d rows after prune, want 200", len(got))
	}
	// The newest rows survive; the oldest ten are pruned.
	if got[0].ID != 210 {
		t.Errorf("newest row id = %d, want 210", got[0].ID)
	}
	if got[len(got)-1].ID != 11 {
		t.Errorf("oldest surviving row id = %d, want 11", got[len(got)-1].ID)
	}
}
