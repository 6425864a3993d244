package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fincubator/booker/internal/entities"
)

// Manager tracks websocket subscribers and pushes order lifecycle events to
// them. It implements ports.OrderNotifier.
type Manager struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewWebSocketManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

func (m *Manager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, nil)
}

func (m *Manager) AddClient(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[conn] = true
}

func (m *Manager) RemoveClient(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, conn)
	conn.Close()
}

// orderEvent is the wire shape pushed to subscribers when an order settles.
type orderEvent struct {
	Event   string               `json:"event"`
	OrderID string               `json:"order_id"`
	State   entities.OrderState  `json:"state"`
	TxHash  string               `json:"tx_hash"`
	Coin    string               `json:"coin"`
	Amount  string               `json:"amount"`
}

// NotifyOrderSettled broadcasts a settled-order event to every subscriber.
// Dead connections are dropped on write failure.
func (m *Manager) NotifyOrderSettled(order entities.OrderView, txHash string) {
	event := orderEvent{
		Event:   "order_settled",
		OrderID: order.OrderID.String(),
		State:   entities.OrderStateSettled,
		TxHash:  txHash,
		Coin:    order.OutTxCoin,
		Amount:  order.OutTxAmount.String(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for conn := range m.clients {
		if err := conn.WriteJSON(event); err != nil {
			m.logger.Error("Failed to push order event, dropping client", "error", err)
			delete(m.clients, conn)
			conn.Close()
		}
	}
}

type WebSocketHandler struct {
	logger           *slog.Logger
	websocketManager *Manager
}

func NewWebSocketHandler(logger *slog.Logger, websocketManager *Manager) *WebSocketHandler {
	return &WebSocketHandler{
		logger:           logger,
		websocketManager: websocketManager,
	}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/orders", h.HandleConnection)
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.websocketManager.Upgrade(w, r)
	if err != nil {
		h.logger.Error("Error upgrading connection", "error", err)
		return
	}

	h.logger.Info("New WebSocket connection", "remote", conn.RemoteAddr().String())
	h.websocketManager.AddClient(conn)

	// Keep connection open and handle disconnection
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			h.logger.Info("WebSocket connection closed", "error", readErr)
			h.websocketManager.RemoveClient(conn)
			break
		}
	}
}
