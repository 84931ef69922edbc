package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/storage"

	"github.com/google/uuid"
)

// EventInput is used for both create and update; on update empty fields
// and a nil image keep the stored values.
type EventInput struct {
	Name  string
	Date  string
	Image *storage.File
}

type EventService interface {
	Create(ctx context.Context, principal domain.Principal, in EventInput) (*domain.Event, error)
	Update(ctx context.Context, principal domain.Principal, id string, in EventInput) (*domain.Event, error)
	Delete(ctx context.Context, principal domain.Principal, id string) error
	Get(ctx context.Context, principal domain.Principal, id string) (*domain.Event, error)
	List(ctx context.Context, principal domain.Principal) ([]*domain.Event, error)
}

type eventService struct {
	eventRepo repository.EventRepository
	uploader  uploader
}

func NewEventService(eventRepo repository.EventRepository, store storage.Store, maxUpload int64) EventService {
	return &eventService{
		eventRepo: eventRepo,
		uploader:  uploader{store: store, maxUpload: maxUpload},
	}
}

func parseEventDate(raw string) (time.Time, error) {
	date, err := domain.ParseEventDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, wrapCause(KindValidation, "La fecha no tiene un formato válido", err)
	}
	return date, nil
}

func (s *eventService) Create(ctx context.Context, principal domain.Principal, in EventInput) (*domain.Event, error) {
	if !principal.IsAdministrator() {
		return nil, forbiddenError("Acceso denegado. Solo el administrador puede registrar eventos")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Date) == "" {
		return nil, validationError("Todos los campos son obligatorios")
	}
	date, err := parseEventDate(in.Date)
	if err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, validationError("La imagen del evento es obligatoria")
	}
	if err := s.uploader.validate(in.Image); err != nil {
		return nil, err
	}

	imageURL, err := s.uploader.upload(ctx, storage.FolderEvents, in.Image)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &domain.Event{
		ID:        uuid.New(),
		Name:      name,
		Date:      date,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrEventAlreadyExists) {
			return nil, conflictError("Lo sentimos, el evento ya se encuentra registrado con el mismo nombre")
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) Update(ctx context.Context, principal domain.Principal, id string, in EventInput) (*domain.Event, error) {
	if !principal.IsAdministrator() {
		return nil, forbiddenError("Acceso denegado. Solo el administrador puede actualizar eventos")
	}

	eventID, err := parseID(id, "ID de evento inválido")
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFoundError(fmt.Sprintf("Lo sentimos, no existe el evento con ID: %s", id))
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		event.Name = name
	}
	if strings.TrimSpace(in.Date) != "" {
		if event.Date, err = parseEventDate(in.Date); err != nil {
			return nil, err
		}
	}
	if in.Image != nil {
		if err := s.uploader.validate(in.Image); err != nil {
			return nil, err
		}
		if event.ImageURL, err = s.uploader.upload(ctx, storage.FolderEvents, in.Image); err != nil {
			return nil, err
		}
	}

	event.UpdatedAt = time.Now()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, notFoundError(fmt.Sprintf("Evento con ID: %s no encontrado o eliminado", id))
		case errors.Is(err, repository.ErrEventAlreadyExists):
			return nil, conflictError("Lo sentimos, el evento ya se encuentra registrado con el mismo nombre")
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	if !principal.IsAdministrator() {
		return forbiddenError("Acceso denegado. Solo el administrador puede eliminar eventos")
	}

	eventID, err := parseID(id, "ID de evento inválido")
	if err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return notFoundError(fmt.Sprintf("Evento con ID: %s no encontrado o ya fue eliminado", id))
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (s *eventService) Get(ctx context.Context, principal domain.Principal, id string) (*domain.Event, error) {
	if principal.IsAnonymous() {
		return nil, forbiddenError("Acceso denegado. Debes iniciar sesión como administrador o cliente para ver los detalles del evento")
	}

	eventID, err := parseID(id, "ID de evento inválido")
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFoundError("Evento no encontrado")
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (s *eventService) List(ctx context.Context, principal domain.Principal) ([]*domain.Event, error) {
	if principal.IsAnonymous() {
		return nil, forbiddenError("Acceso denegado. Debes iniciar sesión como administrador o cliente para ver los eventos")
	}

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
