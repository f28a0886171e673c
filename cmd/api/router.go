package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sahil001001/BaatCheet-app/internal/data"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageStore is the subset of the messages store the router depends on.
type MessageStore interface {
	SaveMessage(ctx context.Context, senderID, receiverID, text, image string) (*data.Message, error)
	GetMessage(ctx context.Context, id string) (*data.Message, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)
	GetConversation(ctx context.Context, userID, otherID string) ([]*data.Message, error)
	MarkSeen(ctx context.Context, senderID, receiverID string) ([]bson.ObjectID, error)
}

// UserStore is the subset of the users store the router and handlers depend on.
type UserStore interface {
	CreateUser(ctx context.Context, email, fullName, hashedPassword string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id string) (*data.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	ListOthers(ctx context.Context, excludeID string) ([]*data.User, error)
}

// MessageRouter validates and persists message operations, then fans the
// results out to both participants' live connections through the hub. Both
// the websocket path and the HTTP path go through it, so the persisted
// effects are identical regardless of transport.
type MessageRouter struct {
	log   *slog.Logger
	msgs  MessageStore
	users UserStore
	hub   *PresenceHub
}

// NewMessageRouter wires a router with its store and hub collaborators.
func NewMessageRouter(log *slog.Logger, msgs MessageStore, users UserStore, hub *PresenceHub) *MessageRouter {
	return &MessageRouter{log: log, msgs: msgs, users: users, hub: hub}
}

// Send persists a new message and delivers it to every live connection of
// the sender and the receiver. Fan-out only happens after the message is
// durably stored; a store failure never produces a phantom delivery.
func (r *MessageRouter) Send(ctx context.Context, senderID, receiverID, text, image string) (*data.Message, error) {
	if text == "" && image == "" {
		return nil, data.ErrEmptyMessage
	}

	exists, err := r.users.UserExists(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("verify receiver: %w", err)
	}
	if !exists {
		return nil, data.ErrUserNotFound
	}

	msg, err := r.msgs.SaveMessage(ctx, senderID, receiverID, text, image)
	if err != nil {
		return nil, err
	}

	r.deliverToParticipants(senderID, receiverID, receiveMessageEvent(msg))
	return msg, nil
}

// Delete removes a message on behalf of one of its participants and notifies
// both sides. A second delete of the same id reports ErrMessageNotFound, it
// never fails hard.
func (r *MessageRouter) Delete(ctx context.Context, requesterID, messageID string) error {
	msg, err := r.msgs.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID && msg.ReceiverID != requesterID {
		return data.ErrNotParticipant
	}

	deleted, err := r.msgs.DeleteMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !deleted {
		// Lost a race with a concurrent delete of the same message.
		return data.ErrMessageNotFound
	}

	r.deliverToParticipants(msg.SenderID, msg.ReceiverID, deleteMessageEvent(messageID))
	return nil
}

// MarkSeen flips all unseen messages in the senderID→receiverID direction
// and tells the sender's live connections which ids changed, so their view
// can reconcile delivered→seen. The notification carries exactly the
// affected ids and is only emitted after the store update returned, so a
// client never sees a message reported seen before it durably is.
func (r *MessageRouter) MarkSeen(ctx context.Context, senderID, receiverID string) ([]string, error) {
	ids, err := r.msgs.MarkSeen(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	hexIDs := lo.Map(ids, func(id bson.ObjectID, _ int) string { return id.Hex() })
	if err := r.hub.SendToUser(senderID, messagesSeenEvent(senderID, receiverID, hexIDs)); err != nil {
		r.log.Debug("seen notification not delivered", "sender", senderID, "error", err)
	}
	return hexIDs, nil
}

// FetchConversation returns both directions of the conversation between
// userID and otherID, oldest first. Loading a conversation is what "seeing"
// it means, so messages the other party sent are marked seen first.
func (r *MessageRouter) FetchConversation(ctx context.Context, userID, otherID string) ([]*data.Message, error) {
	if _, err := r.MarkSeen(ctx, otherID, userID); err != nil {
		return nil, err
	}
	return r.msgs.GetConversation(ctx, userID, otherID)
}

// deliverToParticipants fans one event out to all live connections of both
// participants. Delivery is best-effort; an offline participant just reads
// the conversation later.
func (r *MessageRouter) deliverToParticipants(senderID, receiverID string, evt outEvent) {
	if err := r.hub.SendToUser(receiverID, evt); err != nil {
		r.log.Debug("delivery skipped", "user", receiverID, "error", err)
	}
	if senderID == receiverID {
		return
	}
	if err := r.hub.SendToUser(senderID, evt); err != nil {
		r.log.Debug("delivery skipped", "user", senderID, "error", err)
	}
}
