package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegister = "register"
	InboundTypeAuth     = "auth"
	InboundTypeMessage  = "message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventAuthResponse = "authResponse"
	EventLogout       = "logout"
	EventMessage      = "message"
	EventUserJoin     = "userJoin"
	EventBacklog      = "backlog"
)

// RegisterData asks to create an account.
type RegisterData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token,omitempty"`
}

// AuthData asks to log in and join an internal channel.
type AuthData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Channel  string `json:"channel"`
	Server   string `json:"server"`
	Token    string `json:"token,omitempty"`
}

// MessageData is a chat message from a logged in client.
type MessageData struct {
	From    string `json:"from"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// AuthResponse answers register and auth requests.
type AuthResponse struct {
	Username   string `json:"username"`
	Admin      bool   `json:"admin"`
	Token      string `json:"token"`
	AdminToken string `json:"adminToken,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

// Logout tells a client its session was logged out.
type Logout struct {
	User    string `json:"user,omitempty"`
	Message string `json:"message"`
}

// UserJoin announces a login.
type UserJoin struct {
	User string `json:"user"`
}

// ChatMessage is a bridged message. Date is formatted as in HTTP headers.
type ChatMessage struct {
	ID      int64  `json:"id"`
	From    string `json:"from"`
	Message string `json:"message"`
	Channel string `json:"channel"`
	Server  string `json:"server"`
	Date    string `json:"date"`
}

// Backlog carries the retained messages of the joined channel.
type Backlog struct {
	Messages []ChatMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
