package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/desertthunder/focusync/internal/shared"
)

// Client is a surface connected to a bridge.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the bridge websocket at url, e.g. "ws://127.0.0.1:7777/ws".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bridge: %w", shared.ErrRemoteUnavailable, err)
	}
	return &Client{conn: conn}, nil
}

// Start asks the bridge to start the timer.
func (c *Client) Start(ctx context.Context, d time.Duration, metadata map[string]string) error {
	return wsjson.Write(ctx, c.conn, Command{Kind: KindStart, DurationSeconds: int(d / time.Second), Metadata: metadata})
}

// Stop asks the bridge to stop the timer.
func (c *Client) Stop(ctx context.Context) error {
	return wsjson.Write(ctx, c.conn, Command{Kind: KindStop})
}

// Next blocks for the next message from the bridge.
func (c *Client) Next(ctx context.Context) (StateMessage, error) {
	var msg StateMessage
	if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
		return StateMessage{}, err
	}
	return msg, nil
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
