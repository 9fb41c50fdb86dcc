package server

import (
	"civsim-server/internal/network"
	"civsim-server/pkg/api"
	"civsim-server/pkg/logger"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressClient - подписчик потока прогресса одного задания
type progressClient struct {
	hub   *network.Broadcaster
	conn  *websocket.Conn
	jobID string
	send  chan api.ProgressMessage
	log   *logrus.Entry
}

// GET /ws/simulations/{id}
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	if _, err := s.Engine.Job(jobID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	c := &progressClient{
		hub:   s.Engine.Hub,
		conn:  conn,
		jobID: jobID,
		send:  s.Engine.Hub.Subscribe(jobID),
		log:   logger.Log.WithFields(logrus.Fields{"component": "ws", "job_id": jobID}),
	}

	// Задание уже завершено: топик закрыт, шлем итог и закрываем соединение
	if finished, _ := s.Engine.JobFinished(jobID); finished {
		s.Engine.Hub.Unsubscribe(jobID, c.send)
		view, _ := s.Engine.Job(jobID)
		c.writeFinal(view)
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *progressClient) writeFinal(view api.JobView) {
	defer c.conn.Close()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := api.ProgressMessage{Type: api.MsgDone, JobID: view.ID, Progress: view.Progress, Report: view.Report}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.WithError(err).Debug("write final message failed")
		return
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump только следит за соединением: команд от клиента нет
func (c *progressClient) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.jobID, c.send)
		if err := c.conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("WS Error: %v", err)
			}
			return
		}
	}
}

// writePump пересылает сообщения задания клиенту + Ping
func (c *progressClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				// Задание завершено (или клиент отписался)
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
