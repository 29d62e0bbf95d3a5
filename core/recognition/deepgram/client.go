package deepgram

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
)

// Client streams microphone audio to Deepgram's realtime listen endpoint and
// reports interim and final transcripts of the user's own speech. It is the
// low-latency transcript source used for immediate UI feedback while the
// generative session produces the model side of the conversation.
type Client struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs             time.Time
	accumulatedTranscript string
	unendedSegment        bool

	stopRequested atomic.Bool
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) IsRunning() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// Close requests a stream close and tears the socket down. Safe to call when
// the client never started.
func (c *Client) Close(context.Context) error {
	c.stopRequested.Store(true)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}

	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("failed to close recognizer stream: %w", err)
	}
	c.conn.Close()
	c.conn = nil
	return nil
}
