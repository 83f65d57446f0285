package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventMessage delivers a bridged chat message.
	EventMessage EventKind = iota
	// EventUserJoin announces a successful login to every connection.
	EventUserJoin
	// EventAuthResponse answers a register or auth request.
	EventAuthResponse
	// EventLogout tells a session it has been logged out.
	EventLogout
	// EventBacklog delivers recent messages of the joined channel.
	EventBacklog
	// EventError reports a rejected request on the message path.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind     EventKind
	User     string
	Reason   string
	Message  Message
	Messages []Message // For EventBacklog
	Auth     *AuthResult
	Error    *CoreError
}

// AuthResult is the payload of EventAuthResponse.
type AuthResult struct {
	Username   string
	Admin      bool
	Token      string
	AdminToken string // only for admin accounts when admin tokens are enabled
	Success    bool
	Message    string
}
