package model

import (
	"encoding/json"
)

// Websocket event names. These match the event vocabulary of the web client.
const (
	EventJoinRoom         = "joinRoom"
	EventSendMessage      = "sendMessage"
	EventReceiveMessage   = "receiveMessage"
	EventUserConnected    = "userConnected"
	EventUserDisconnected = "userDisconnected"
)

// User presence statuses carried by userConnected / userDisconnected events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserStatusEvent is emitted when a party comes online or goes offline.
type UserStatusEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}
