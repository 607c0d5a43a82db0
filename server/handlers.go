package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"restaurant-chatbot/models"
	"restaurant-chatbot/services"

	"go.uber.org/zap"
)

type handlers struct {
	chat    *services.Chat
	orders  services.OrderStore
	menu    services.MenuStore
	gateway services.PaymentGateway
	logger  *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type chatRequest struct {
	DeviceID string `json:"deviceId"`
	Message  string `json:"message"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{
			Success: false,
			Message: "Device ID and message are required",
		})
		return
	}

	reply := h.chat.ProcessMessage(r.Context(), req.DeviceID, req.Message)
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Message: reply})
}

type paymentInitRequest struct {
	DeviceID string `json:"deviceId"`
}

type paymentInitResponse struct {
	Success          bool   `json:"success"`
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
	Reference        string `json:"reference,omitempty"`
	Message          string `json:"message,omitempty"`
}

func (h *handlers) handlePaymentInitialize(w http.ResponseWriter, r *http.Request) {
	var req paymentInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, paymentInitResponse{
			Success: false,
			Message: "Device ID is required",
		})
		return
	}

	init := h.chat.InitializePayment(r.Context(), req.DeviceID)
	writeJSON(w, http.StatusOK, paymentInitResponse{
		Success:          init.Success,
		AuthorizationURL: init.AuthorizationURL,
		Reference:        init.Reference,
		Message:          init.Message,
	})
}

type paymentVerifyRequest struct {
	Reference string `json:"reference"`
}

type paymentVerifyResponse struct {
	Status bool `json:"status"`
}

// handlePaymentVerify is the gateway webhook. The order id is embedded in the
// reference as order_<id>_<timestamp>.
func (h *handlers) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	var req paymentVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, paymentVerifyResponse{Status: false})
		return
	}

	parts := strings.Split(req.Reference, "_")
	if len(parts) < 3 {
		writeJSON(w, http.StatusBadRequest, paymentVerifyResponse{Status: false})
		return
	}
	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, paymentVerifyResponse{Status: false})
		return
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("payment verify lookup", zap.Int64("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, paymentVerifyResponse{Status: false})
		return
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, paymentVerifyResponse{Status: false})
		return
	}

	h.chat.ProcessPayment(r.Context(), order.DeviceID, req.Reference)
	writeJSON(w, http.StatusOK, paymentVerifyResponse{Status: true})
}

// handlePaymentCallback is where the gateway sends the customer back after
// hosted checkout.
func (h *handlers) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")

	v, err := h.gateway.Verify(r.Context(), reference)
	if err != nil {
		h.logger.Error("payment callback verify", zap.String("reference", reference), zap.Error(err))
		http.Redirect(w, r, "/?success=false", http.StatusFound)
		return
	}
	if v.Status != "success" {
		http.Redirect(w, r, "/?success=false", http.StatusFound)
		return
	}

	h.chat.ProcessPayment(r.Context(), v.DeviceID, reference)
	http.Redirect(w, r, "/?success=true&reference="+url.QueryEscape(reference), http.StatusFound)
}

type seededItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Available   bool    `json:"available"`
}

type seedMenuResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    []seededItem `json:"data,omitempty"`
}

// handleSeedMenu replaces the whole catalog with the fixed sample set.
func (h *handlers) handleSeedMenu(w http.ResponseWriter, r *http.Request) {
	items := services.SampleMenu()
	if err := h.menu.Seed(r.Context(), items); err != nil {
		h.logger.Error("seed menu", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, seedMenuResponse{
			Success: false,
			Message: "An error occurred while seeding menu items",
		})
		return
	}

	out := make([]seededItem, len(items))
	for i, it := range items {
		out[i] = menuItemJSON(it)
	}
	writeJSON(w, http.StatusOK, seedMenuResponse{
		Success: true,
		Message: "Menu items seeded successfully",
		Data:    out,
	})
}

func menuItemJSON(it models.MenuItem) seededItem {
	return seededItem{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Price:       float64(it.PriceCents) / 100,
		Category:    it.Category,
		Available:   it.Available,
	}
}
