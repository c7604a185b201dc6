package message_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apimgmt/pkg/message"
	"github.com/dmitrymomot/apimgmt/pkg/node"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testNode(t *testing.T) node.Node {
	t.Helper()
	n, err := node.New("node-1")
	require.NoError(t, err)
	return n
}

func fixedClock() time.Time { return fixedNow }

func TestService_Send(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty recipient", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))

		err := svc.Send(context.Background(), message.NewMessage{Content: "{}"})
		assert.ErrorIs(t, err, message.ErrRecipientNotFound)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stamps origin, timestamps and expiry", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t), message.WithClock(fixedClock))

		var created message.Message
		store.On("Create", mock.Anything, mock.AnythingOfType("message.Message")).
			Run(func(args mock.Arguments) { created = args.Get(1).(message.Message) }).
			Return(&message.Message{}, nil)

		err := svc.Send(context.Background(), message.NewMessage{
			To:      message.RecipientManagementAPIs.String(),
			Tags:    []message.Tag{message.TagDataToIndex},
			Content: `{"id":"1"}`,
			TTL:     message.TTLSeconds(3600),
		})
		require.NoError(t, err)

		_, err = uuid.Parse(created.ID)
		assert.NoError(t, err)
		assert.Equal(t, "node-1", created.From)
		assert.Equal(t, "MANAGEMENT_APIS", created.To)
		assert.Equal(t, []string{"DATA_TO_INDEX"}, created.Tags)
		assert.Equal(t, `{"id":"1"}`, created.Content)
		assert.Equal(t, fixedNow, created.CreatedAt)
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
		assert.Equal(t, created.CreatedAt.Add(3600*1000*time.Millisecond), created.DeleteAt)
		assert.Empty(t, created.Acknowledgments)
		store.AssertExpectations(t)
	})

	t.Run("empty tag list when none given", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("Create", mock.Anything, mock.MatchedBy(func(m message.Message) bool {
			return m.Tags != nil && len(m.Tags) == 0
		})).Return(&message.Message{}, nil)

		require.NoError(t, svc.Send(context.Background(), message.NewMessage{To: "MANAGEMENT_APIS"}))
		store.AssertExpectations(t)
	})

	t.Run("rejects unknown tag", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))

		err := svc.Send(context.Background(), message.NewMessage{
			To:   "MANAGEMENT_APIS",
			Tags: []message.Tag{"NOT_A_TAG"},
		})
		assert.ErrorIs(t, err, message.ErrMappingFailure)
		assert.ErrorIs(t, err, message.ErrUnknownTag)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("wraps store failure", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		storeErr := errors.New("connection reset")
		store.On("Create", mock.Anything, mock.Anything).Return(nil, storeErr)

		err := svc.Send(context.Background(), message.NewMessage{To: "MANAGEMENT_APIS"})
		assert.ErrorIs(t, err, message.ErrTechnicalFailure)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestService_Search(t *testing.T) {
	t.Parallel()

	t.Run("builds node scoped criteria", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))

		store.On("Search", mock.Anything, message.Criteria{
			To:         "MANAGEMENT_APIS",
			Tags:       []string{"DATA_TO_INDEX"},
			NotAckBy:   "node-1",
			NotDeleted: true,
		}).Return([]message.Message{
			{ID: "a", To: "MANAGEMENT_APIS", Tags: []string{"DATA_TO_INDEX"}, Content: "x"},
			{ID: "b", To: "MANAGEMENT_APIS", Content: "y"},
		}, nil)

		got, err := svc.Search(context.Background(), message.Query{
			To:   "MANAGEMENT_APIS",
			Tags: []message.Tag{message.TagDataToIndex},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, message.Entity{ID: "a", To: "MANAGEMENT_APIS", Content: "x", Tags: []message.Tag{message.TagDataToIndex}}, got[0])
		assert.Equal(t, "b", got[1].ID)
		assert.Empty(t, got[1].Tags)
		store.AssertExpectations(t)
	})

	t.Run("no tags means no tag filter", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("Search", mock.Anything, mock.MatchedBy(func(c message.Criteria) bool {
			return len(c.Tags) == 0 && c.NotAckBy == "node-1" && c.NotDeleted
		})).Return([]message.Message{}, nil)

		got, err := svc.Search(context.Background(), message.Query{To: "MANAGEMENT_APIS"})
		require.NoError(t, err)
		assert.Empty(t, got)
		store.AssertExpectations(t)
	})

	t.Run("unknown stored tag fails loudly", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("Search", mock.Anything, mock.Anything).Return([]message.Message{
			{ID: "a", Tags: []string{"DATA_TO_INDEX", "LEGACY"}},
		}, nil)

		_, err := svc.Search(context.Background(), message.Query{})
		assert.ErrorIs(t, err, message.ErrMappingFailure)
		assert.ErrorIs(t, err, message.ErrUnknownTag)
	})

	t.Run("wraps store failure", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := svc.Search(context.Background(), message.Query{})
		assert.ErrorIs(t, err, message.ErrTechnicalFailure)
	})
}

func TestService_Ack(t *testing.T) {
	t.Parallel()

	t.Run("missing message is a no-op", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("FindByID", mock.Anything, "gone").Return(nil, message.ErrMessageNotFound)

		assert.NotPanics(t, func() { svc.Ack(context.Background(), "gone") })
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("creates acknowledgment set", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t), message.WithClock(fixedClock))
		store.On("FindByID", mock.Anything, "m1").Return(&message.Message{ID: "m1"}, nil)
		store.On("Update", mock.Anything, mock.MatchedBy(func(m message.Message) bool {
			return m.ID == "m1" && len(m.Acknowledgments) == 1 && m.Acknowledgments[0] == "node-1" && m.UpdatedAt.Equal(fixedNow)
		})).Return(&message.Message{}, nil)

		svc.Ack(context.Background(), "m1")
		store.AssertExpectations(t)
	})

	t.Run("appends to other nodes", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("FindByID", mock.Anything, "m1").
			Return(&message.Message{ID: "m1", Acknowledgments: []string{"node-0"}}, nil)
		store.On("Update", mock.Anything, mock.MatchedBy(func(m message.Message) bool {
			return assert.ObjectsAreEqual([]string{"node-0", "node-1"}, m.Acknowledgments)
		})).Return(&message.Message{}, nil)

		svc.Ack(context.Background(), "m1")
		store.AssertExpectations(t)
	})

	t.Run("already acknowledged by this node", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("FindByID", mock.Anything, "m1").
			Return(&message.Message{ID: "m1", Acknowledgments: []string{"node-1"}}, nil)

		svc.Ack(context.Background(), "m1")
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("swallows lookup failure", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("FindByID", mock.Anything, "m1").Return(nil, errors.New("timeout"))

		assert.NotPanics(t, func() { svc.Ack(context.Background(), "m1") })
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("swallows update failure", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		svc := message.NewService(store, testNode(t))
		store.On("FindByID", mock.Anything, "m1").Return(&message.Message{ID: "m1"}, nil)
		store.On("Update", mock.Anything, mock.Anything).Return(nil, errors.New("write conflict"))

		assert.NotPanics(t, func() { svc.Ack(context.Background(), "m1") })
		store.AssertExpectations(t)
	})

	t.Run("uses atomic acknowledgement when the store supports it", func(t *testing.T) {
		t.Parallel()

		store := &MockAckStore{}
		svc := message.NewService(store, testNode(t), message.WithClock(fixedClock))
		store.On("Acknowledge", mock.Anything, "m1", "node-1", fixedNow).Return(nil).Once()

		svc.Ack(context.Background(), "m1")
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("swallows atomic acknowledgement failures", func(t *testing.T) {
		t.Parallel()

		store := &MockAckStore{}
		svc := message.NewService(store, testNode(t))
		store.On("Acknowledge", mock.Anything, "gone", "node-1", mock.Anything).Return(message.ErrMessageNotFound)
		store.On("Acknowledge", mock.Anything, "m1", "node-1", mock.Anything).Return(errors.New("timeout"))

		assert.NotPanics(t, func() {
			svc.Ack(context.Background(), "gone")
			svc.Ack(context.Background(), "m1")
		})
		store.AssertExpectations(t)
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	svc := message.NewService(store, testNode(t))
	store.On("Delete", mock.Anything, "ok").Return(nil)
	store.On("Delete", mock.Anything, "bad").Return(errors.New("boom"))

	assert.NoError(t, svc.Delete(context.Background(), "ok"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "bad"), message.ErrTechnicalFailure)
}

func TestService_WithMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := fixedNow
	clock := func() time.Time { return now }
	store := message.NewMemoryStore(message.WithMemoryStoreClock(clock))

	nodeA, err := node.New("node-a")
	require.NoError(t, err)
	nodeB, err := node.New("node-b")
	require.NoError(t, err)

	a := message.NewService(store, nodeA, message.WithClock(clock))
	b := message.NewService(store, nodeB, message.WithClock(clock))

	require.NoError(t, a.Send(ctx, message.NewMessage{
		To:      message.RecipientManagementAPIs.String(),
		Tags:    []message.Tag{message.TagDataToIndex},
		Content: `{"id":"api-1"}`,
		TTL:     time.Minute,
	}))

	query := message.Query{To: "MANAGEMENT_APIS", Tags: []message.Tag{message.TagDataToIndex}}

	fromA, err := a.Search(ctx, query)
	require.NoError(t, err)
	require.Len(t, fromA, 1)

	a.Ack(ctx, fromA[0].ID)
	a.Ack(ctx, fromA[0].ID)

	fromA, err = a.Search(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, fromA, "acknowledged message must be hidden from the acknowledging node")

	fromB, err := b.Search(ctx, query)
	require.NoError(t, err)
	require.Len(t, fromB, 1, "acknowledgment is per node")

	stored, err := store.FindByID(ctx, fromB[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-a"}, stored.Acknowledgments)

	now = now.Add(2 * time.Minute)
	fromB, err = b.Search(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, fromB, "expired message must not be returned")
}
