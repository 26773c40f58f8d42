package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single write to a page that stopped reading.
const writeWait = 10 * time.Second

type websocketClient struct {
	conn *websocket.Conn
}

// NewWebsocketClient wraps a gorilla/websocket connection.
func NewWebsocketClient(conn *websocket.Conn) Client {
	return &websocketClient{conn: conn}
}

func (c *websocketClient) WriteMessage(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *websocketClient) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *websocketClient) Close() error {
	return c.conn.Close()
}
