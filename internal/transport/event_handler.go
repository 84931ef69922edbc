package transport

import (
	"net/http"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EventHandler handles HTTP requests for store events
type EventHandler struct {
	eventService service.EventService
	maxUpload    int64
	logger       *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService, maxUpload int64, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		maxUpload:    maxUpload,
		logger:       logger,
	}
}

// RegisterRoutes registers all event routes
func (h *EventHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/events", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.List(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.Get(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readInput(w, r)
	if !ok {
		return
	}

	event, err := h.eventService.Create(r.Context(), middleware.PrincipalFrom(r.Context()), in)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Event created", zap.String("event_id", event.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readInput(w, r)
	if !ok {
		return
	}

	event, err := h.eventService.Update(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Msg: "Evento eliminado exitosamente"})
}

func (h *EventHandler) readInput(w http.ResponseWriter, r *http.Request) (service.EventInput, bool) {
	if !parseMultipart(w, r, h.maxUpload, h.logger) {
		return service.EventInput{}, false
	}
	image, ok := readFormFile(w, r, "image", h.maxUpload, h.logger)
	if !ok {
		return service.EventInput{}, false
	}

	return service.EventInput{
		Name:  r.FormValue("name"),
		Date:  r.FormValue("date"),
		Image: image,
	}, true
}
