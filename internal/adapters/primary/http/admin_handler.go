package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pilahub/queue-backend/internal/adapters/primary/validation"
	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/ports"
	"github.com/pilahub/queue-backend/internal/infrastructure/metrics"
)

// AdminHandler handles the authenticated counter-side queue operations.
type AdminHandler struct {
	queueService ports.QueueService
	statsService ports.StatsService
	errorHandler *ErrorHandler
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	queueService ports.QueueService,
	statsService ports.StatsService,
	errorHandler *ErrorHandler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		queueService: queueService,
		statsService: statsService,
		errorHandler: errorHandler,
		metrics:      m,
		logger:       logger.With("handler", "admin"),
	}
}

// RegisterRoutes sets up the routing for the admin queue endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/queues/{queueID}", func(r chi.Router) {
		r.Post("/call-next", h.HandleCallNext)
		r.Post("/tickets/{ticketID}/complete", h.HandleCompleteServing)
		r.Post("/tickets/{ticketID}/notify", h.HandleNotify)
		r.Post("/reset", h.HandleRequestReset)
		r.Post("/reset/confirm", h.HandleConfirmReset)
		r.Get("/stats", h.HandleGetStats)
	})
}

// --- Request/Response DTOs ---

// ConfirmResetRequest defines the expected JSON body for confirming a reset.
type ConfirmResetRequest struct {
	Token string `json:"token"`
}

// Validate validates the confirm reset request
func (r *ConfirmResetRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("token", r.Token)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ResetRequestDTO is the response for the first reset step.
type ResetRequestDTO struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// ResetResultDTO is the response for a confirmed reset.
type ResetResultDTO struct {
	Deleted int `json:"deleted"`
}

// ServiceShareDTO is one slice of the per-service breakdown.
type ServiceShareDTO struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// HistoryEntryDTO is one recently served ticket.
type HistoryEntryDTO struct {
	TicketNumber int    `json:"ticketNumber"`
	ServiceType  string `json:"serviceType"`
	WaitMinutes  int    `json:"waitMinutes"`
	ServedAt     string `json:"servedAt"`
}

// QueueStatsDTO is the admin analytics projection.
type QueueStatsDTO struct {
	WaitingCount       int               `json:"waitingCount"`
	ServedCount        int               `json:"servedCount"`
	NowServingNumber   *int              `json:"nowServingNumber"`
	AverageWaitMinutes int               `json:"averageWaitMinutes"`
	ServiceBreakdown   []ServiceShareDTO `json:"serviceBreakdown"`
	RecentHistory      []HistoryEntryDTO `json:"recentHistory"`
}

func toQueueStatsDTO(stats domain.QueueStats) QueueStatsDTO {
	breakdown := make([]ServiceShareDTO, 0, len(stats.ServiceBreakdown))
	for _, share := range stats.ServiceBreakdown {
		breakdown = append(breakdown, ServiceShareDTO{
			Name:       share.Name,
			Count:      share.Count,
			Percentage: share.Percentage,
		})
	}

	history := make([]HistoryEntryDTO, 0, len(stats.RecentHistory))
	for _, entry := range stats.RecentHistory {
		history = append(history, HistoryEntryDTO{
			TicketNumber: entry.TicketNumber,
			ServiceType:  entry.ServiceType,
			WaitMinutes:  entry.WaitMinutes,
			ServedAt:     entry.ServedAt.Format(time.RFC3339),
		})
	}

	return QueueStatsDTO{
		WaitingCount:       stats.WaitingCount,
		ServedCount:        stats.ServedCount,
		NowServingNumber:   stats.NowServingNumber,
		AverageWaitMinutes: stats.AverageWaitMinutes,
		ServiceBreakdown:   breakdown,
		RecentHistory:      history,
	}
}

// --- Handlers ---

// HandleCallNext handles POST /queues/{queueID}/call-next
func (h *AdminHandler) HandleCallNext(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	ticket, err := h.queueService.CallNext(r.Context(), queueID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("next ticket called",
		"queue_id", queueID,
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCompleteServing handles POST /queues/{queueID}/tickets/{ticketID}/complete
func (h *AdminHandler) HandleCompleteServing(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseInt64URLParam(chi.URLParam(r, "ticketID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.queueService.CompleteServing(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("serving completed",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"wait_minutes", ticket.WaitMinutes,
	)
	h.metrics.TicketServed()

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleNotify handles POST /queues/{queueID}/tickets/{ticketID}/notify
func (h *AdminHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseInt64URLParam(chi.URLParam(r, "ticketID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.queueService.Notify(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("holder notified",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleRequestReset handles POST /queues/{queueID}/reset. The returned token
// must be echoed back on the confirm endpoint before it expires.
func (h *AdminHandler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	reset, err := h.queueService.RequestReset(r.Context(), queueID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Warn("queue reset requested", "queue_id", queueID)

	WriteJSON(w, http.StatusOK, ResetRequestDTO{
		Token:     reset.Token,
		ExpiresAt: reset.ExpiresAt.Format(time.RFC3339),
	})
}

// HandleConfirmReset handles POST /queues/{queueID}/reset/confirm
func (h *AdminHandler) HandleConfirmReset(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	req, err := validation.DecodeAndValidate[ConfirmResetRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.queueService.ConfirmReset(r.Context(), queueID, req.Token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Warn("queue reset confirmed",
		"queue_id", queueID,
		"deleted", result.Deleted,
	)
	h.metrics.QueueReset()

	WriteJSON(w, http.StatusOK, ResetResultDTO{Deleted: result.Deleted})
}

// HandleGetStats handles GET /queues/{queueID}/stats
func (h *AdminHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	stats, err := h.statsService.QueueStats(r.Context(), queueID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toQueueStatsDTO(stats))
}
