package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pilahub/queue-backend/internal/adapters/primary/validation"
	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// CatalogHandler handles admin management of the service catalog.
type CatalogHandler struct {
	catalogService ports.CatalogService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	catalogService ports.CatalogService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "catalog"),
	}
}

// RegisterRoutes sets up the routing for the catalog admin endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.HandleListServiceTypes)
		r.Post("/", h.HandleCreateServiceType)
		r.Put("/{serviceID}", h.HandleUpdateServiceType)
		r.Delete("/{serviceID}", h.HandleDeleteServiceType)
	})
}

// --- Request DTOs ---

// ServiceTypeRequest defines the expected JSON body for creating or updating
// a catalog entry.
type ServiceTypeRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Validate validates the service type request
func (r *ServiceTypeRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, 80)

	v.Required("icon", r.Icon).
		OneOf("icon", r.Icon, domain.ServiceIcons)

	v.Required("color", r.Color).
		OneOf("color", r.Color, domain.ServiceColors)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleListServiceTypes handles GET /services
func (h *CatalogHandler) HandleListServiceTypes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalogService.ListServiceTypes(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toServiceTypeDTOs(entries))
}

// HandleCreateServiceType handles POST /services
func (h *CatalogHandler) HandleCreateServiceType(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[ServiceTypeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st, err := h.catalogService.CreateServiceType(r.Context(), ports.CreateServiceTypeParams{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service type created",
		"service_type_id", st.ID,
		"name", st.Name,
	)

	WriteCreated(w, toServiceTypeDTO(st))
}

// HandleUpdateServiceType handles PUT /services/{serviceID}
func (h *CatalogHandler) HandleUpdateServiceType(w http.ResponseWriter, r *http.Request) {
	serviceID, err := validation.ParseInt64URLParam(chi.URLParam(r, "serviceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ServiceTypeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st, err := h.catalogService.UpdateServiceType(r.Context(), ports.UpdateServiceTypeParams{
		ID:    serviceID,
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service type updated",
		"service_type_id", st.ID,
		"name", st.Name,
	)

	WriteJSON(w, http.StatusOK, toServiceTypeDTO(st))
}

// HandleDeleteServiceType handles DELETE /services/{serviceID}. Existing
// tickets keep their denormalized service name.
func (h *CatalogHandler) HandleDeleteServiceType(w http.ResponseWriter, r *http.Request) {
	serviceID, err := validation.ParseInt64URLParam(chi.URLParam(r, "serviceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.catalogService.DeleteServiceType(r.Context(), serviceID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("service type deleted", "service_type_id", serviceID)

	WriteNoContent(w)
}
