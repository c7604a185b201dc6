package message_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apimgmt/pkg/message"
)

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := message.NewMemoryStore()

	_, err := store.Create(ctx, message.Message{})
	assert.ErrorIs(t, err, message.ErrInvalidMessage)

	_, err = store.Create(ctx, message.Message{ID: "m1", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}})
	require.NoError(t, err)

	_, err = store.Create(ctx, message.Message{ID: "m1"})
	assert.ErrorIs(t, err, message.ErrInvalidMessage, "duplicate id")

	got, err := store.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "MANAGEMENT_APIS", got.To)

	got.Tags[0] = "mutated"
	again, err := store.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"DATA_TO_INDEX"}, again.Tags, "store must hand out copies")

	again.Acknowledgments = []string{"node-1"}
	_, err = store.Update(ctx, *again)
	require.NoError(t, err)
	updated, err := store.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-1"}, updated.Acknowledgments)

	_, err = store.Update(ctx, message.Message{ID: "missing"})
	assert.ErrorIs(t, err, message.ErrMessageNotFound)

	require.NoError(t, store.Delete(ctx, "m1"))
	require.NoError(t, store.Delete(ctx, "m1"))
	_, err = store.FindByID(ctx, "m1")
	assert.ErrorIs(t, err, message.ErrMessageNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Search(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := message.NewMemoryStore(message.WithMemoryStoreClock(func() time.Time { return now }))

	seed := []message.Message{
		{ID: "indexed", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, CreatedAt: now.Add(-3 * time.Second), DeleteAt: now.Add(time.Hour)},
		{ID: "untagged", To: "MANAGEMENT_APIS", CreatedAt: now.Add(-2 * time.Second), DeleteAt: now.Add(time.Hour)},
		{ID: "other-recipient", To: "PORTAL", Tags: []string{"DATA_TO_INDEX"}, CreatedAt: now, DeleteAt: now.Add(time.Hour)},
		{ID: "acked", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, Acknowledgments: []string{"node-1"}, CreatedAt: now, DeleteAt: now.Add(time.Hour)},
		{ID: "expired", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, CreatedAt: now.Add(-time.Hour), DeleteAt: now},
		{ID: "acked-elsewhere", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, Acknowledgments: []string{"node-2"}, CreatedAt: now.Add(-time.Second), DeleteAt: now.Add(time.Hour)},
	}
	for _, m := range seed {
		_, err := store.Create(ctx, m)
		require.NoError(t, err)
	}

	ids := func(msgs []message.Message) []string {
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, m.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		criteria message.Criteria
		want     []string
	}{
		{
			name:     "drain query",
			criteria: message.Criteria{To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, NotAckBy: "node-1", NotDeleted: true},
			want:     []string{"indexed", "acked-elsewhere"},
		},
		{
			name:     "tags are OR-ed",
			criteria: message.Criteria{To: "MANAGEMENT_APIS", Tags: []string{"OTHER", "DATA_TO_INDEX"}, NotAckBy: "node-1", NotDeleted: true},
			want:     []string{"indexed", "acked-elsewhere"},
		},
		{
			name:     "no tag filter",
			criteria: message.Criteria{To: "MANAGEMENT_APIS", NotAckBy: "node-1", NotDeleted: true},
			want:     []string{"indexed", "untagged", "acked-elsewhere"},
		},
		{
			name:     "deleted included when not filtered",
			criteria: message.Criteria{To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, NotAckBy: "node-2"},
			want:     []string{"expired", "indexed", "acked"},
		},
		{
			name:     "no filter",
			criteria: message.Criteria{},
			want:     []string{"expired", "indexed", "untagged", "acked-elsewhere", "acked", "other-recipient"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(ctx, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMemoryStore_Acknowledge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := message.NewMemoryStore()
	_, err := store.Create(ctx, message.Message{ID: "m1", To: "MANAGEMENT_APIS"})
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Acknowledge(ctx, "m1", fmt.Sprintf("node-%d", i), at))
		}()
	}
	wg.Wait()

	require.NoError(t, store.Acknowledge(ctx, "m1", "node-0", at.Add(time.Hour)))

	got, err := store.FindByID(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, got.Acknowledgments, 16, "concurrent acks from different nodes must all be kept")
	assert.Equal(t, at, got.UpdatedAt, "acking twice leaves the message untouched")

	assert.ErrorIs(t, store.Acknowledge(ctx, "missing", "node-0", at), message.ErrMessageNotFound)
}

func TestMemoryStore_ZeroDeleteAtNeverExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := message.NewMemoryStore()
	_, err := store.Create(ctx, message.Message{ID: "forever", To: "MANAGEMENT_APIS"})
	require.NoError(t, err)

	got, err := store.Search(ctx, message.Criteria{To: "MANAGEMENT_APIS", NotDeleted: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "forever", got[0].ID)
}
