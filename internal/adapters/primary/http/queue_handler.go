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

// QueueHandler handles the public, customer-facing queue endpoints.
type QueueHandler struct {
	queueService   ports.QueueService
	catalogService ports.CatalogService
	statsService   ports.StatsService
	errorHandler   *ErrorHandler
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(
	queueService ports.QueueService,
	catalogService ports.CatalogService,
	statsService ports.StatsService,
	errorHandler *ErrorHandler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *QueueHandler {
	return &QueueHandler{
		queueService:   queueService,
		catalogService: catalogService,
		statsService:   statsService,
		errorHandler:   errorHandler,
		metrics:        m,
		logger:         logger.With("handler", "queue"),
	}
}

// RegisterRoutes sets up the routing for the public queue endpoints.
// joinLimiter, when non-nil, is applied to the ticket-issuing endpoint only.
func (h *QueueHandler) RegisterRoutes(r chi.Router, joinLimiter func(http.Handler) http.Handler) {
	r.Route("/queues/{queueID}", func(r chi.Router) {
		if joinLimiter != nil {
			r.With(joinLimiter).Post("/tickets", h.HandleJoinQueue)
		} else {
			r.Post("/tickets", h.HandleJoinQueue)
		}
		r.Get("/tickets/{ticketID}", h.HandleGetTicket)
		r.Get("/board", h.HandleGetBoard)
		r.Get("/services", h.HandleListServices)
	})
}

// --- Request/Response DTOs ---

// JoinQueueRequest defines the expected JSON body for taking a ticket. Either
// a code or a scanned QR payload must be present.
type JoinQueueRequest struct {
	ServiceTypeID *int64 `json:"serviceTypeId"`
	Code          string `json:"code"`
	QRToken       string `json:"qrToken"`
}

// Validate validates the join queue request
func (r *JoinQueueRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("code", r.Code != "" || r.QRToken != "", "Either code or qrToken is required").
		MaxLength("code", r.Code, 64).
		MaxLength("qrToken", r.QRToken, 64)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID           int64   `json:"id"`
	QueueID      string  `json:"queueId"`
	TicketNumber int     `json:"ticketNumber"`
	Status       string  `json:"status"`
	ServiceType  string  `json:"serviceType"`
	CreatedAt    string  `json:"createdAt"`
	ServedAt     *string `json:"servedAt,omitempty"`
	WaitMinutes  *int    `json:"waitMinutes,omitempty"`
	NotifiedAt   *string `json:"notifiedAt,omitempty"`
}

// TicketViewDTO is the ticket holder's projection: their ticket plus where
// they stand in the queue.
type TicketViewDTO struct {
	Ticket               TicketDTO `json:"ticket"`
	NowServingNumber     *int      `json:"nowServingNumber"`
	PeopleAhead          int       `json:"peopleAhead"`
	EstimatedWaitMinutes int       `json:"estimatedWaitMinutes"`
}

// BoardDTO is the public waiting-room display.
type BoardDTO struct {
	NowServingNumber *int `json:"nowServingNumber"`
	WaitingCount     int  `json:"waitingCount"`
}

// ServiceTypeDTO defines the JSON response for catalog entries.
type ServiceTypeDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdAt"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var servedAt *string
	if ticket.ServedAt != nil {
		value := ticket.ServedAt.Format(time.RFC3339)
		servedAt = &value
	}

	var notifiedAt *string
	if ticket.NotifiedAt != nil {
		value := ticket.NotifiedAt.Format(time.RFC3339)
		notifiedAt = &value
	}

	return TicketDTO{
		ID:           ticket.ID,
		QueueID:      ticket.QueueID,
		TicketNumber: ticket.TicketNumber,
		Status:       string(ticket.Status),
		ServiceType:  ticket.DisplayServiceType(),
		CreatedAt:    ticket.CreatedAt.Format(time.RFC3339),
		ServedAt:     servedAt,
		WaitMinutes:  ticket.WaitMinutes,
		NotifiedAt:   notifiedAt,
	}
}

func toServiceTypeDTO(st *domain.ServiceType) ServiceTypeDTO {
	return ServiceTypeDTO{
		ID:        st.ID,
		Name:      st.Name,
		Icon:      st.Icon,
		Color:     st.Color,
		Position:  st.Position,
		CreatedAt: st.CreatedAt.Format(time.RFC3339),
	}
}

func toServiceTypeDTOs(entries []*domain.ServiceType) []ServiceTypeDTO {
	response := make([]ServiceTypeDTO, 0, len(entries))
	for _, st := range entries {
		response = append(response, toServiceTypeDTO(st))
	}
	return response
}

func toBoardDTO(board domain.Board) BoardDTO {
	return BoardDTO{
		NowServingNumber: board.NowServingNumber,
		WaitingCount:     board.WaitingCount,
	}
}

// --- Handlers ---

// HandleJoinQueue handles POST /queues/{queueID}/tickets
func (h *QueueHandler) HandleJoinQueue(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	req, err := validation.DecodeAndValidate[JoinQueueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	method := ports.JoinByCode
	if req.QRToken != "" {
		method = ports.JoinByQR
	}

	params := ports.JoinQueueParams{
		QueueID:       queueID,
		ServiceTypeID: req.ServiceTypeID,
		Method:        method,
		Code:          req.Code,
		QRToken:       req.QRToken,
	}

	ticket, err := h.queueService.JoinQueue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket issued",
		"queue_id", queueID,
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"method", method,
	)
	h.metrics.TicketIssued()

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /queues/{queueID}/tickets/{ticketID}
func (h *QueueHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	ticketID, err := validation.ParseInt64URLParam(chi.URLParam(r, "ticketID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	view, err := h.queueService.GetTicketView(r.Context(), queueID, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TicketViewDTO{
		Ticket:               toTicketDTO(view.Ticket),
		NowServingNumber:     view.NowServingNumber,
		PeopleAhead:          view.PeopleAhead,
		EstimatedWaitMinutes: view.EstimatedWaitMinutes,
	})
}

// HandleGetBoard handles GET /queues/{queueID}/board
func (h *QueueHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")

	board, err := h.statsService.Board(r.Context(), queueID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toBoardDTO(board))
}

// HandleListServices handles GET /queues/{queueID}/services. The catalog is
// global; customers fetch it per queue to pick a service before joining.
func (h *QueueHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalogService.ListServiceTypes(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toServiceTypeDTOs(entries))
}
