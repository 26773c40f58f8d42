package hub

// Client is one live page connection. The hub is the only writer.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}
