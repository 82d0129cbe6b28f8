// Package httpapi exposes a data service over HTTP in the shape the
// dataservice.Client expects.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	service dataservice.Service
	logger  *logrus.Logger
}

func NewHandler(service dataservice.Service, logger *logrus.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts every route on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	router.HandleFunc("/orders/resolve", h.ResolveOrderID).Methods("GET")
	router.HandleFunc("/orders/{id}", h.GetOrderAggregate).Methods("GET")
	router.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods("PATCH")
	router.HandleFunc("/orders/{id}/note", h.UpdateOrderNote).Methods("PUT")
	router.HandleFunc("/orders/{id}/admin-note", h.UpdateAdminNote).Methods("PUT")
	router.HandleFunc("/orders/{id}/attachments", h.AddAttachments).Methods("POST")
	router.HandleFunc("/orders/{id}/attachments/{attachmentID}", h.DeleteAttachment).Methods("DELETE")
	router.HandleFunc("/orders/{id}/items", h.CreateItem).Methods("POST")
	router.HandleFunc("/items/{itemID}", h.UpdateItem).Methods("PATCH")
	router.HandleFunc("/items/{itemID}", h.DeleteItem).Methods("DELETE")
	router.HandleFunc("/items/{itemID}/images", h.AddItemImages).Methods("POST")
	router.HandleFunc("/items/{itemID}/images/remove", h.RemoveItemImages).Methods("POST")

	router.HandleFunc("/orders/{id}/payment", h.GetPaymentData).Methods("GET")
	router.HandleFunc("/orders/{id}/payment/status", h.UpdatePaymentStatus).Methods("PUT")
	router.HandleFunc("/orders/{id}/payment/service-fee", h.UpdateServiceFee).Methods("PUT")
	router.HandleFunc("/orders/{id}/payment/note", h.UpdatePaymentNote).Methods("PUT")
	router.HandleFunc("/orders/{id}/payment/financials", h.UpdateAdminFinancials).Methods("PUT")
	router.HandleFunc("/orders/{id}/payment/split", h.UpdateProductSplit).Methods("PUT")
	router.HandleFunc("/payments/{paymentID}/transactions", h.AddTransaction).Methods("POST")
	router.HandleFunc("/payments/{paymentID}/transactions/{transactionID}", h.DeleteTransaction).Methods("DELETE")

	router.HandleFunc("/orders/{id}/quotes", h.ListQuotes).Methods("GET")
	router.HandleFunc("/orders/{id}/quotes", h.CreateQuotes).Methods("POST")
	router.HandleFunc("/quotes/{quoteID}", h.DeleteQuote).Methods("DELETE")

	router.HandleFunc("/currency-rates", h.GetCurrencyRates).Methods("GET")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "orderdata",
	})
}

func (h *Handler) ResolveOrderID(w http.ResponseWriter, r *http.Request) {
	lookup := r.URL.Query().Get("lookup")
	if lookup == "" {
		h.respondWithError(w, http.StatusBadRequest, "lookup is required")
		return
	}
	id, err := h.service.ResolveOrderID(r.Context(), lookup)
	if err != nil {
		h.fail(w, "resolve order id", err)
		return
	}
	if id == "" {
		h.respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"order_id": id})
}

func (h *Handler) GetOrderAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.GetOrderAggregate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, "get order aggregate", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, agg)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var update models.StatusUpdate
	if !h.decode(w, r, &update) {
		return
	}
	status, err := h.service.UpdateOrderStatus(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		h.fail(w, "update order status", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, status)
}

type textBody struct {
	Text string `json:"text"`
}

func (h *Handler) UpdateOrderNote(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if !h.decode(w, r, &body) {
		return
	}
	text, err := h.service.UpdateOrderNote(r.Context(), mux.Vars(r)["id"], body.Text)
	if err != nil {
		h.fail(w, "update order note", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, textBody{Text: text})
}

func (h *Handler) UpdateAdminNote(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if !h.decode(w, r, &body) {
		return
	}
	text, err := h.service.UpdateAdminNote(r.Context(), mux.Vars(r)["id"], body.Text)
	if err != nil {
		h.fail(w, "update admin note", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, textBody{Text: text})
}

type filesBody struct {
	Files []models.FileUpload `json:"files"`
}

func (h *Handler) AddAttachments(w http.ResponseWriter, r *http.Request) {
	var body filesBody
	if !h.decode(w, r, &body) {
		return
	}
	out, err := h.service.AddAttachments(r.Context(), mux.Vars(r)["id"], body.Files)
	if err != nil {
		h.fail(w, "add attachments", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, out)
}

func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeleteAttachment(r.Context(), vars["id"], vars["attachmentID"]); err != nil {
		h.fail(w, "delete attachment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.Item
	if !h.decode(w, r, &item) {
		return
	}
	out, err := h.service.CreateItem(r.Context(), mux.Vars(r)["id"], item)
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, out)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch models.ItemPatch
	if !h.decode(w, r, &patch) {
		return
	}
	out, err := h.service.UpdateItem(r.Context(), mux.Vars(r)["itemID"], patch)
	if err != nil {
		h.fail(w, "update item", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), mux.Vars(r)["itemID"]); err != nil {
		h.fail(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddItemImages(w http.ResponseWriter, r *http.Request) {
	var body filesBody
	if !h.decode(w, r, &body) {
		return
	}
	out, err := h.service.AddItemImages(r.Context(), mux.Vars(r)["itemID"], body.Files)
	if err != nil {
		h.fail(w, "add item images", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, out)
}

func (h *Handler) RemoveItemImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageIDs []string `json:"image_ids"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	deleted, err := h.service.RemoveItemImages(r.Context(), mux.Vars(r)["itemID"], body.ImageIDs)
	if err != nil {
		h.fail(w, "remove item images", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string][]string{"deleted_ids": deleted})
}

func (h *Handler) GetPaymentData(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetPaymentData(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, "get payment data", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, state)
}

func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.PaymentStatus `json:"payment_status"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.empty(w, "update payment status", h.service.UpdatePaymentStatus(r.Context(), mux.Vars(r)["id"], body.Status))
}

func (h *Handler) UpdateServiceFee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pct decimal.Decimal `json:"service_fee_pct"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.empty(w, "update service fee", h.service.UpdateServiceFee(r.Context(), mux.Vars(r)["id"], body.Pct))
}

func (h *Handler) UpdatePaymentNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"payment_note"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	h.empty(w, "update payment note", h.service.UpdatePaymentNote(r.Context(), mux.Vars(r)["id"], body.Note))
}

func (h *Handler) UpdateAdminFinancials(w http.ResponseWriter, r *http.Request) {
	var figures models.AdminFinancials
	if !h.decode(w, r, &figures) {
		return
	}
	h.empty(w, "update admin financials", h.service.UpdateAdminFinancials(r.Context(), mux.Vars(r)["id"], figures))
}

func (h *Handler) UpdateProductSplit(w http.ResponseWriter, r *http.Request) {
	var split models.ProductSplit
	if !h.decode(w, r, &split) {
		return
	}
	h.empty(w, "update product split", h.service.UpdateProductSplit(r.Context(), mux.Vars(r)["id"], split))
}

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var body dataservice.TransactionRequest
	if !h.decode(w, r, &body) {
		return
	}
	tx, err := h.service.AddTransaction(r.Context(), mux.Vars(r)["paymentID"], body.OrderID, body.Amount, body.Note)
	if err != nil {
		h.fail(w, "add transaction", err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, tx)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID := r.URL.Query().Get("order_id")
	h.empty(w, "delete transaction", h.service.DeleteTransaction(r.Context(), vars["paymentID"], orderID, vars["transactionID"]))
}

func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.ListQuotes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, "list quotes", err)
		return
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	h.respondWithJSON(w, http.StatusOK, quotes)
}

func (h *Handler) CreateQuotes(w http.ResponseWriter, r *http.Request) {
	var body dataservice.QuotesRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.empty(w, "create quotes", h.service.CreateQuotes(r.Context(), mux.Vars(r)["id"], body.Rows, body.ValidDays))
}

func (h *Handler) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	h.empty(w, "delete quote", h.service.DeleteQuote(r.Context(), mux.Vars(r)["quoteID"]))
}

func (h *Handler) GetCurrencyRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.GetCurrencyRates(r.Context())
	if err != nil {
		h.fail(w, "get currency rates", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, rates)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WithError(err).WithField("path", r.URL.Path).Warn("Failed to decode request body")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) empty(w http.ResponseWriter, op string, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors onto status codes the client maps back.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, dataservice.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dataservice.ErrValidation):
		h.respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).WithField("operation", op).Error("Data service operation failed")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// LoggingMiddleware logs every request and its duration.
func LoggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Debug("Request received")

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
