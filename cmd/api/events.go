package main

import (
	"encoding/json"

	"github.com/Sahil001001/BaatCheet-app/internal/data"
)

// Realtime event names. Inbound events arrive from the client's websocket,
// outbound events are pushed by the server. The names match the wire protocol
// the web client speaks.
const (
	evtIdentify       = "identify"
	evtSendMessage    = "send_message"
	evtDeleteMessage  = "delete_message"
	evtMarkSeen       = "mark_seen"
	evtLogout         = "logout"
	evtReceiveMessage = "receive_message"
	evtMessagesSeen   = "messages_seen"
	evtOnlineUsers    = "online_users"
)

// envelope is the inbound wire frame: a type tag plus a raw payload decoded
// per event once the type is known.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outEvent is the outbound wire frame.
type outEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type identifyPayload struct {
	UserID string `json:"userId"`
}

type sendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
}

type deleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

type markSeenPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type messagesSeenPayload struct {
	SenderID   string   `json:"senderId"`
	ReceiverID string   `json:"receiverId"`
	MessageIDs []string `json:"messageIds"`
}

func receiveMessageEvent(msg *data.Message) outEvent {
	return outEvent{Type: evtReceiveMessage, Payload: msg}
}

func deleteMessageEvent(messageID string) outEvent {
	return outEvent{Type: evtDeleteMessage, Payload: deleteMessagePayload{MessageID: messageID}}
}

func messagesSeenEvent(senderID, receiverID string, messageIDs []string) outEvent {
	return outEvent{Type: evtMessagesSeen, Payload: messagesSeenPayload{
		SenderID:   senderID,
		ReceiverID: receiverID,
		MessageIDs: messageIDs,
	}}
}

func onlineUsersEvent(userIDs []string) outEvent {
	return outEvent{Type: evtOnlineUsers, Payload: userIDs}
}
