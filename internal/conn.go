package internal

// Conn is one live client connection as seen by an actor. The id is
// ephemeral: a reconnecting browser gets a new Conn with a new id and
// reclaims its identity through the session protocol.
type Conn interface {
	ID() string
	// Send writes one encoded frame. Implementations must be safe for use
	// from the actor goroutine while a reader runs elsewhere.
	Send(data []byte) error
	Close() error
}
