package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// ErrSlowConsumer is returned by Send when the subscriber's buffer is full.
// The delivery is dropped; the connection stays open until its read loop
// observes a close.
var ErrSlowConsumer = errors.New("subscriber send buffer full")

// ErrSenderClosed is returned by Send after the sender has been stopped.
var ErrSenderClosed = errors.New("sender closed")

// ConnSender adapts a gorilla websocket connection to the Sender interface.
// Writes go through a buffered channel drained by a single goroutine, so
// Send never blocks on a slow peer and the connection only ever has one
// writer.
type ConnSender struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewConnSender wraps connection and starts its writer goroutine.
func NewConnSender(connection *websocket.Conn, clock clockwork.Clock) *ConnSender {
	cs := &ConnSender{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cs.configurePongHandler()
	cs.wg.Add(1)
	go cs.run()
	return cs
}

// Send enqueues payload for delivery. Non-blocking: returns ErrSlowConsumer
// when the buffer is full and ErrSenderClosed after Close.
func (cs *ConnSender) Send(payload []byte) error {
	select {
	case <-cs.doneChannel:
		return ErrSenderClosed
	default:
	}

	select {
	case cs.sendChannel <- payload:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops the writer goroutine and closes the connection. Safe to call
// more than once.
func (cs *ConnSender) Close() error {
	cs.stopOnce.Do(func() {
		close(cs.doneChannel)
		cs.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		cs.updateWriteDeadline()
		_ = cs.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cs.connection.Close()
	})
	return nil
}

func (cs *ConnSender) run() {
	ticker := cs.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cs.wg.Done()

	for {
		select {
		case msg := <-cs.sendChannel:
			start := cs.clock.Now()
			cs.updateWriteDeadline()
			if err := cs.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			metrics.SubscriberSendDuration.Observe(cs.clock.Since(start).Seconds())
		case <-ticker.Chan():
			cs.updateWriteDeadline()
			if err := cs.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Ping failed - peer likely disconnected; read loop will
				// notice and trigger Disconnect.
				return
			}
		case <-cs.doneChannel:
			return
		}
	}
}

func (cs *ConnSender) configurePongHandler() {
	cs.updateReadDeadline()
	cs.connection.SetPongHandler(func(string) error {
		cs.updateReadDeadline()
		return nil
	})
}

func (cs *ConnSender) updateWriteDeadline() {
	_ = cs.connection.SetWriteDeadline(cs.clock.Now().Add(writeDeadline))
}

func (cs *ConnSender) updateReadDeadline() {
	_ = cs.connection.SetReadDeadline(cs.clock.Now().Add(pongDeadline))
}
