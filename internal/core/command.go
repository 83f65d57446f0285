package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRegister creates an account.
	CommandRegister CommandKind = iota
	// CommandAuth logs the connection in and joins a channel.
	CommandAuth
	// CommandMessage relays a chat message to the external network.
	CommandMessage
)

// Command represents an action requested by a client. Only the request
// matching Kind is read.
type Command struct {
	Kind     CommandKind
	Register RegisterRequest
	Auth     AuthRequest
	Message  MessageRequest
}

// RegisterRequest asks for a new account.
type RegisterRequest struct {
	Username string
	Password string
	Token    string // sign-up token
}

// AuthRequest asks to log in and join an internal channel.
type AuthRequest struct {
	Username string
	Password string
	Channel  string
	Server   string
	Token    string
}

// MessageRequest is a chat message sent by a logged in session.
type MessageRequest struct {
	From  string
	Token string
	Text  string
}
