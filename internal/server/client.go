package server

// Client abstracts the connection layer for both raw TCP and WebSocket
// connections. This allows the server to handle both protocols transparently.
type Client interface {
	// ReadLine blocks until a complete line is received (without newline).
	// Returns the line and any error encountered.
	ReadLine() (string, error)

	// WriteLine sends a single protocol line to the client.
	// For TCP, this appends a newline. For WebSocket, the line is sent
	// as one text message.
	WriteLine(message string) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}
