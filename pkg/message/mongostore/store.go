// Package mongostore stores messages in a MongoDB collection.
//
// Expiry is delegated to MongoDB: EnsureIndexes installs a TTL index on
// deleteAt so the server removes expired messages, while Search also
// filters on deleteAt because TTL removal runs only periodically. Messages
// without a delete time are stored without deleteAt and never expire.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/apimgmt/pkg/message"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "messages"

type document struct {
	ID              string     `bson:"_id"`
	From            string     `bson:"from"`
	To              string     `bson:"to"`
	Tags            []string   `bson:"tags"`
	Content         string     `bson:"content,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt"`
	DeleteAt        *time.Time `bson:"deleteAt,omitempty"` // absent means the message never expires
	Acknowledgments []string   `bson:"acknowledgments"`
}

func fromMessage(m message.Message) document {
	d := document{
		ID:              m.ID,
		From:            m.From,
		To:              m.To,
		Tags:            m.Tags,
		Content:         m.Content,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		Acknowledgments: m.Acknowledgments,
	}
	if !m.DeleteAt.IsZero() {
		deleteAt := m.DeleteAt.UTC()
		d.DeleteAt = &deleteAt
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Acknowledgments == nil {
		d.Acknowledgments = []string{}
	}
	return d
}

func (d document) toMessage() message.Message {
	m := message.Message{
		ID:              d.ID,
		From:            d.From,
		To:              d.To,
		Tags:            d.Tags,
		Content:         d.Content,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		Acknowledgments: d.Acknowledgments,
	}
	if d.DeleteAt != nil {
		m.DeleteAt = *d.DeleteAt
	}
	return m
}

// Store implements message.Store on a MongoDB collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

var (
	_ message.Store        = (*Store)(nil)
	_ message.Acknowledger = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for the deleteAt filter.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store backed by the named collection of db. An empty name
// selects DefaultCollection.
func New(db *mongo.Database, collection string, opts ...Option) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	s := &Store{
		coll: db.Collection(collection),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the search index on (to, tags) and the TTL index on deleteAt.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "to", Value: 1}, {Key: "tags", Value: 1}},
			Options: options.Index().SetName("to_tags"),
		},
		{
			Keys:    bson.D{{Key: "deleteAt", Value: 1}},
			Options: options.Index().SetName("delete_at_ttl").SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*message.Message, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, message.ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message %s: %w", id, err)
	}
	msg := doc.toMessage()
	return &msg, nil
}

func (s *Store) Create(ctx context.Context, msg message.Message) (*message.Message, error) {
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: id is required", message.ErrInvalidMessage)
	}
	doc := fromMessage(msg)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.Join(message.ErrInvalidMessage, err)
		}
		return nil, fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	out := doc.toMessage()
	return &out, nil
}

func (s *Store) Update(ctx context.Context, msg message.Message) (*message.Message, error) {
	doc := fromMessage(msg)
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: msg.ID}}, doc)
	if err != nil {
		return nil, fmt.Errorf("replace message %s: %w", msg.ID, err)
	}
	if res.MatchedCount == 0 {
		return nil, message.ErrMessageNotFound
	}
	out := doc.toMessage()
	return &out, nil
}

// Acknowledge adds nodeID to the acknowledgements with a single $addToSet
// update, so concurrent acks from different nodes are all kept.
func (s *Store) Acknowledge(ctx context.Context, id, nodeID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, ackFilter(id, nodeID), ackUpdate(nodeID, at))
	if err != nil {
		return fmt.Errorf("acknowledge message %s: %w", id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either already acked by nodeID or gone.
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("find message %s: %w", id, err)
	}
	if n == 0 {
		return message.ErrMessageNotFound
	}
	return nil
}

func ackFilter(id, nodeID string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "acknowledgments", Value: bson.D{{Key: "$ne", Value: nodeID}}},
	}
}

func ackUpdate(nodeID string, at time.Time) bson.D {
	return bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "acknowledgments", Value: nodeID}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at.UTC()}}},
	}
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

// Search returns matching messages ordered by creation time.
func (s *Store) Search(ctx context.Context, criteria message.Criteria) ([]message.Message, error) {
	cursor, err := s.coll.Find(ctx, filter(criteria, s.now()),
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]message.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toMessage())
	}
	return out, nil
}

func filter(c message.Criteria, now time.Time) bson.D {
	f := bson.D{}
	if c.To != "" {
		f = append(f, bson.E{Key: "to", Value: c.To})
	}
	if len(c.Tags) > 0 {
		f = append(f, bson.E{Key: "tags", Value: bson.D{{Key: "$in", Value: c.Tags}}})
	}
	if c.NotAckBy != "" {
		f = append(f, bson.E{Key: "acknowledgments", Value: bson.D{{Key: "$ne", Value: c.NotAckBy}}})
	}
	if c.NotDeleted {
		f = append(f, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "deleteAt", Value: bson.D{{Key: "$gt", Value: now.UTC()}}}},
			bson.D{{Key: "deleteAt", Value: bson.D{{Key: "$exists", Value: false}}}},
		}})
	}
	return f
}
