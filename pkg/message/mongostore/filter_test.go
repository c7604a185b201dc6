package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/apimgmt/pkg/message"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty criteria matches everything", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, bson.D{}, filter(message.Criteria{}, now))
	})

	t.Run("drain criteria", func(t *testing.T) {
		t.Parallel()

		got := filter(message.Criteria{
			To:         "MANAGEMENT_APIS",
			Tags:       []string{"DATA_TO_INDEX"},
			NotAckBy:   "node-1",
			NotDeleted: true,
		}, now)

		assert.Equal(t, bson.D{
			{Key: "to", Value: "MANAGEMENT_APIS"},
			{Key: "tags", Value: bson.D{{Key: "$in", Value: []string{"DATA_TO_INDEX"}}}},
			{Key: "acknowledgments", Value: bson.D{{Key: "$ne", Value: "node-1"}}},
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "deleteAt", Value: bson.D{{Key: "$gt", Value: now}}}},
				bson.D{{Key: "deleteAt", Value: bson.D{{Key: "$exists", Value: false}}}},
			}},
		}, got)
	})
}

func TestAckUpdate(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, bson.D{
		{Key: "_id", Value: "m1"},
		{Key: "acknowledgments", Value: bson.D{{Key: "$ne", Value: "node-1"}}},
	}, ackFilter("m1", "node-1"))

	assert.Equal(t, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "acknowledgments", Value: "node-1"}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at.UTC()}}},
	}, ackUpdate("node-1", at))
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := message.Message{
		ID:        "m1",
		From:      "node-1",
		To:        "MANAGEMENT_APIS",
		Content:   `{"id":"1"}`,
		CreatedAt: now,
		UpdatedAt: now,
		DeleteAt:  now.Add(time.Hour),
	}

	doc := fromMessage(msg)
	assert.Equal(t, []string{}, doc.Tags, "nil tags are stored as an empty array")
	assert.Equal(t, []string{}, doc.Acknowledgments, "nil acknowledgments are stored as an empty array")

	back := doc.toMessage()
	assert.Equal(t, msg.ID, back.ID)
	assert.Equal(t, msg.DeleteAt, back.DeleteAt)

	t.Run("zero delete time is not stored", func(t *testing.T) {
		t.Parallel()

		msg := msg
		msg.DeleteAt = time.Time{}
		doc := fromMessage(msg)
		assert.Nil(t, doc.DeleteAt)
		assert.True(t, doc.toMessage().DeleteAt.IsZero())
	})
}
