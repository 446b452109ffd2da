// network/connection.go
package network

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

const writeWait = 5 * time.Second

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send queue full")
)

// Connection is one client socket carrying one message per line.
type Connection interface {
	// Send queues a line for the writer. It never blocks; a full queue
	// closes the connection.
	Send(line []byte) error
	// ReadMessage blocks until the next line arrives.
	ReadMessage() ([]byte, error)
	// Close flushes queued lines and closes the socket.
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

// outbox is the buffered queue drained by a single writer goroutine.
type outbox struct {
	queue    chan []byte
	closing  chan struct{}
	done     chan struct{}
	once     sync.Once
	write    func([]byte) error
	shutdown func() error
}

func newOutbox(size int, write func([]byte) error, shutdown func() error) *outbox {
	if size <= 0 {
		size = 1
	}
	o := &outbox{
		queue:    make(chan []byte, size),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		write:    write,
		shutdown: shutdown,
	}
	go o.writePump()
	return o
}

func (o *outbox) Send(line []byte) error {
	select {
	case <-o.closing:
		return ErrClosed
	default:
	}
	select {
	case o.queue <- line:
		return nil
	case <-o.closing:
		return ErrClosed
	default:
		o.Close()
		return ErrSlowConsumer
	}
}

func (o *outbox) Close() error {
	o.once.Do(func() { close(o.closing) })
	return nil
}

// Done is closed once the socket has been shut down.
func (o *outbox) Done() <-chan struct{} {
	return o.done
}

func (o *outbox) writePump() {
	defer close(o.done)
	defer o.shutdown()
	for {
		select {
		case line := <-o.queue:
			if err := o.write(line); err != nil {
				o.Close()
				return
			}
		case <-o.closing:
			for {
				select {
				case line := <-o.queue:
					if err := o.write(line); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// TCPConnection frames messages with '\n' over a stream socket.
type TCPConnection struct {
	*outbox
	conn      net.Conn
	scanner   *bufio.Scanner
	heartbeat time.Duration
}

func NewTCPConnection(conn net.Conn, sendBuffer, maxLineBytes int) *TCPConnection {
	c := &TCPConnection{conn: conn, scanner: bufio.NewScanner(conn)}
	if maxLineBytes > 0 {
		c.scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	}
	c.outbox = newOutbox(sendBuffer, c.writeLine, conn.Close)
	return c
}

func (c *TCPConnection) writeLine(line []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')
	_, err := c.conn.Write(buf)
	return err
}

func (c *TCPConnection) ReadMessage() ([]byte, error) {
	for {
		if c.heartbeat > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
		}
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return append([]byte(nil), line...), nil
	}
}

func (c *TCPConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
}

func (c *TCPConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
