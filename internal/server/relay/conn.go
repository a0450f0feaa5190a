package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/pagecollab/pkg/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20
	sendBuffer     = 256
)

// Peer describes the authenticated participant behind a connection
type Peer struct {
	PageID   string
	UserID   string
	UserName string
}

// client is one websocket connection joined to a room
type client struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	send      chan api.Message
	done      chan struct{}
	awareness *api.Awareness // последняя позиция курсора, nil до первого awareness
	peer      Peer
	id        string
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, peer Peer, logger *slog.Logger) *client {
	return &client{
		id:     id,
		conn:   conn,
		peer:   peer,
		logger: logger.With(slog.String("client_id", id)),
		send:   make(chan api.Message, sendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue ставит сообщение в очередь отправки. Медленный клиент, переполнивший
// буфер, отключается: он догонит состояние через sync после переподключения.
func (c *client) enqueue(msg api.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping connection")
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop читает сообщения до ошибки соединения
func (c *client) readLoop(handle func(api.Message)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
		handle(msg)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("websocket write error", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
