package data

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using the given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// SaveMessage inserts a new unseen message and returns the saved record with
// the store-assigned id and creation time populated.
func (m *MessagesStore) SaveMessage(ctx context.Context, senderID, receiverID, text, image string) (*Message, error) {
	msg := &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  time.Now().UTC(),
		Seen:       false,
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetMessage loads a single message by its hex id. A malformed id is reported
// the same way as an absent document.
func (m *MessagesStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	var msg Message
	if err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

// DeleteMessage hard-deletes a message. The boolean reports whether a
// document was actually removed, so a duplicate delete surfaces as false
// rather than an error.
func (m *MessagesStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	result, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// GetConversation returns all messages exchanged between the two users, both
// directions included, ordered oldest first.
func (m *MessagesStore) GetConversation(ctx context.Context, userID, otherID string) ([]*Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userID, "receiver_id": otherID},
			bson.M{"sender_id": otherID, "receiver_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return messages, nil
}

// MarkSeen flips every unseen message in the senderID→receiverID direction to
// seen and returns the ids that were affected. The ids are collected first and
// the update is constrained to exactly that set, so messages that arrive
// concurrently stay unseen and are picked up by the next call.
func (m *MessagesStore) MarkSeen(ctx context.Context, senderID, receiverID string) ([]bson.ObjectID, error) {
	filter := bson.M{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"seen":        false,
	}

	cursor, err := m.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find unseen messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode unseen ids: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]bson.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	update := bson.M{"$set": bson.M{"seen": true, "seen_at": time.Now().UTC()}}
	if _, err := m.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	return ids, nil
}
