package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fincubator/booker/internal/entities"
	"github.com/fincubator/booker/internal/usecases/repository"
)

type HTTPHandler struct {
	logger             *slog.Logger
	orderService       OrderService
	transactionService TransactionService
}

func NewHTTPHandler(logger *slog.Logger, orderService OrderService, transactionService TransactionService) *HTTPHandler {
	return &HTTPHandler{
		logger:             logger,
		orderService:       orderService,
		transactionService: transactionService,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Health
	router.HandleFunc("/status", h.Status).Methods("GET")

	// Orders
	router.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/orders/ready", h.ListReadyOrders).Methods("GET")
	router.HandleFunc("/orders/{orderId}", h.GetOrder).Methods("GET")
	router.HandleFunc("/orders/{orderId}", h.PatchOrder).Methods("PATCH")
	router.HandleFunc("/orders/{orderId}", h.DeleteOrder).Methods("DELETE")

	// Transactions
	router.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	router.HandleFunc("/transactions/hash/{txHash}", h.GetTransactionByHash).Methods("GET")
	router.HandleFunc("/transactions/{txId}", h.UpdateTransaction).Methods("PUT")
	router.HandleFunc("/transactions/{txId}", h.DeleteTransaction).Methods("DELETE")
}

func (h *HTTPHandler) Status(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ok"))
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	orderType, err := entities.ParseOrderType(req.OrderType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inTx, err := req.InTx.toEntity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outTx, err := req.OutTx.toEntity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), inTx, outTx, orderType)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orderService.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderViewsToResponse(views))
}

func (h *HTTPHandler) ListReadyOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orderService.OrdersReadyForPayout(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderViewsToResponse(views))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	view, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderViewToResponse(*view))
}

func (h *HTTPHandler) PatchOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	var req orderPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patch, err := req.toEntity(orderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = h.orderService.UpdateOrder(r.Context(), patch); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(r.Context(), orderID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := dto.toEntity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = h.transactionService.RecordTransaction(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *HTTPHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := h.pathUUID(w, r, "txId")
	if !ok {
		return
	}

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := dto.toEntity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t.ID = txID

	if err = h.transactionService.UpdateTransaction(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) GetTransactionByHash(w http.ResponseWriter, r *http.Request) {
	txHash := mux.Vars(r)["txHash"]

	t, err := h.transactionService.GetTransactionByHash(r.Context(), txHash)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, transactionToDTO(*t))
}

func (h *HTTPHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := h.pathUUID(w, r, "txId")
	if !ok {
		return
	}

	if err := h.transactionService.RemoveTransaction(r.Context(), txID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the store's failure taxonomy onto HTTP status codes.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrInvalidPatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrConstraintViolation):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("Request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
