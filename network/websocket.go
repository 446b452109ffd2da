// network/websocket.go
package network

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// WSConnection carries one message per text frame.
type WSConnection struct {
	*outbox
	conn      *websocket.Conn
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn, sendBuffer, maxLineBytes int) *WSConnection {
	c := &WSConnection{conn: conn}
	if maxLineBytes > 0 {
		conn.SetReadLimit(int64(maxLineBytes))
	}
	c.outbox = newOutbox(sendBuffer, c.writeFrame, c.closeSocket)
	return c
}

func (c *WSConnection) writeFrame(line []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, line)
}

func (c *WSConnection) closeSocket() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}

func (c *WSConnection) ReadMessage() ([]byte, error) {
	if c.heartbeat > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// SetHeartbeat 设置心跳间隔，两个间隔内无消息则读超时
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	if interval > 0 {
		c.conn.SetPingHandler(func(appData string) error {
			_ = c.conn.SetReadDeadline(time.Now().Add(interval * 2))
			return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		})
	}
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
