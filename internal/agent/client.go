// Package agent is a websocket client speaking the agent side of the event
// protocol. It is used to replay recorded runs against a coordinator.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tvanlaerhoven/cavy-cli/internal/event"
)

const (
	writeTimeout = 10 * time.Second
	maxLineSize  = 4 << 20
)

// Client is a single agent connection.
type Client struct {
	writeMu sync.Mutex // serialises all conn writes (events, keep-alives, close)
	conn    *websocket.Conn
}

// Dial connects to the coordinator at url (e.g. "ws://127.0.0.1:8082/").
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send encodes ev and writes it as one text frame.
func (c *Client) Send(ev event.Event) error {
	data, err := event.Encode(ev)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw writes data verbatim as one text frame.
func (c *Client) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// KeepAlive sends a notify event every interval until ctx is cancelled or a
// write fails.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Send(event.Notify{}); err != nil {
				return err
			}
		}
	}
}

// Close sends a normal-closure frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// Replay sends every non-blank line of r as one frame, pausing delay
// between frames. Lines are not validated; the coordinator decides what to
// ignore. It returns the number of frames sent.
func Replay(ctx context.Context, c *Client, r io.Reader, delay time.Duration) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	sent := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if sent > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.SendRaw(line); err != nil {
			return sent, fmt.Errorf("send frame %d: %w", sent+1, err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("read events: %w", err)
	}
	return sent, nil
}
