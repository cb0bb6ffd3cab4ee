package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/types"
)

// Message types.
const (
	msgText   = "text"
	msgGame   = "game"
	msgMic    = "mic"
	msgCommit = "commit"
	msgReply  = "reply"
	msgError  = "error"
)

const writeWait = 10 * time.Second

type inbound struct {
	Type  string           `json:"type"`
	Text  string           `json:"text,omitempty"`
	Event *types.GameEvent `json:"event,omitempty"`

	err error // set by the reader for frames that are not valid JSON
}

type replyMessage struct {
	Type         string             `json:"type"`
	Text         string             `json:"text"`
	Await        string             `json:"await"`
	State        string             `json:"state"`
	Round        int                `json:"round"`
	Position     int                `json:"position"`
	Continuation bool               `json:"continuation"`
	Annotations  []types.Annotation `json:"annotations,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func awaitName(k types.InputKind) string {
	switch k {
	case types.InputGame:
		return "GAME"
	case types.InputReply:
		return "REPLY"
	}
	return ""
}

// connection runs one engine. All engine calls and socket writes happen on
// the serve goroutine.
type connection struct {
	conn    *websocket.Conn
	eng     *engine.Engine
	opts    Options
	log     *zap.Logger
	metrics *Metrics

	gated bool
}

func (c *connection) serve(ctx context.Context) {
	defer c.conn.Close()

	msgs := make(chan inbound)
	done := make(chan struct{})
	defer close(done)
	go c.read(msgs, done)

	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
	}
	defer stopTimer()

	for {
		var (
			res     engine.Result
			handled bool
			err     error
		)

		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			res, handled, err = c.handle(msg)
		case <-timeout:
			timer, timeout = nil, nil
			c.metrics.commits.WithLabelValues("timeout").Inc()
			res, err = c.eng.Commit()
			handled = !errors.Is(err, engine.ErrNothingPending)
			if !handled {
				err = nil
			}
		}

		if err != nil {
			c.metrics.fatal.Inc()
			c.log.Error("engine failed, closing connection", zap.Error(err))
			c.writeError(err.Error())
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "engine error"),
				time.Now().Add(writeWait))
			return
		}
		if !handled {
			continue
		}

		stopTimer()
		if res.ContinuationPending {
			timer = time.NewTimer(c.opts.CommitTimeout)
			timeout = timer.C
		}
		for _, a := range res.Annotations {
			c.metrics.statuses.WithLabelValues(string(a.Status)).Inc()
		}
		if err := c.writeReply(res); err != nil {
			c.log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

// read forwards inbound messages until the socket fails or done closes.
func (c *connection) read(msgs chan<- inbound, done <-chan struct{}) {
	defer close(msgs)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = inbound{err: err}
		}
		select {
		case msgs <- msg:
		case <-done:
			return
		}
	}
}

// handle applies one inbound message. handled is false when there is no
// reply to send.
func (c *connection) handle(msg inbound) (res engine.Result, handled bool, err error) {
	if msg.err != nil {
		c.writeError(fmt.Sprintf("malformed message: %v", msg.err))
		return res, false, nil
	}
	c.metrics.messages.WithLabelValues(messageLabel(msg.Type)).Inc()

	switch msg.Type {
	case msgText:
		if c.gated {
			c.metrics.ignored.Inc()
			c.log.Debug("utterance ignored", zap.String("text", msg.Text))
			return res, false, nil
		}
		res, err = c.eng.ProcessUtterance(msg.Text)
		if err == nil && c.opts.MicGating && !res.ContinuationPending {
			c.gated = true
		}
		return res, true, err

	case msgGame:
		if msg.Event == nil {
			c.writeError("game message without event")
			return res, false, nil
		}
		res, err = c.eng.ProcessGameEvent(*msg.Event)
		return res, true, err

	case msgMic:
		c.gated = false
		return res, false, nil

	case msgCommit:
		c.metrics.commits.WithLabelValues("client").Inc()
		res, err = c.eng.Commit()
		if errors.Is(err, engine.ErrNothingPending) {
			c.writeError(err.Error())
			return res, false, nil
		}
		return res, true, err

	default:
		c.writeError(fmt.Sprintf("unknown message type %q", msg.Type))
		return res, false, nil
	}
}

func messageLabel(t string) string {
	switch t {
	case msgText, msgGame, msgMic, msgCommit:
		return t
	}
	return "unknown"
}

func (c *connection) writeReply(res engine.Result) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(replyMessage{
		Type:         msgReply,
		Text:         res.Reply,
		Await:        awaitName(res.Await),
		State:        res.Session.Conv.String(),
		Round:        res.Session.Round,
		Position:     res.Session.Position,
		Continuation: res.ContinuationPending,
		Annotations:  res.Annotations,
	})
}

func (c *connection) writeError(message string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(errorMessage{Type: msgError, Message: message}); err != nil {
		c.log.Debug("write failed", zap.Error(err))
	}
}
