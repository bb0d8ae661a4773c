package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"infrascan/internal/logger"
	"infrascan/internal/model"
)

const (
	broadcastQueue = 32
	writeWait      = 5 * time.Second
)

// HubService pushes newly created reports to every connected dashboard.
// Run owns the client set; other goroutines talk to it through channels.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is
// cancelled, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("Client disconnected. Total: %d", h.GetClientCount())

		case message := <-h.broadcast:
			for _, client := range h.snapshot() {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.remove(client)
				}
			}

		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *HubService) remove(client *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
	}
}

func (h *HubService) snapshot() []*websocket.Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// Register adds a client. It returns false when the hub has stopped.
func (h *HubService) Register(ctx context.Context, client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *HubService) Unregister(ctx context.Context, client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-ctx.Done():
	}
}

// BroadcastReport queues a report for delivery. When the queue is full the
// report is dropped for live viewers; it is still in the database.
func (h *HubService) BroadcastReport(report *model.Report) {
	message, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("Error encoding report %d: %v", report.ID, err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, report %d not pushed", report.ID)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
