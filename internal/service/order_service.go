package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/logger"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FinalizeInput is the checkout form. ShippingAddress is the serialized
// address sent by the client.
type FinalizeInput struct {
	ShippingZone    string
	ShippingMethod  string
	ShippingAddress string
	PaymentProof    *storage.File
}

// StatusInput is the admin request to move an order forward
type StatusInput struct {
	Status        string
	ShippingProof *storage.File
}

// OrderService turns carts into orders and ships them
type OrderService interface {
	Finalize(ctx context.Context, principal domain.Principal, in FinalizeInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, principal domain.Principal, orderID string, in StatusInput) (*domain.Order, error)
	History(ctx context.Context, principal domain.Principal) ([]domain.OrderSummary, error)
	Detail(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error)
}

// OrderDeps groups the collaborators of the order service
type OrderDeps struct {
	Transactor    repository.Transactor
	Carts         repository.CartRepository
	Products      repository.ProductRepository
	Orders        repository.OrderRepository
	Customers     repository.CustomerRepository
	Notifications repository.NotificationRepository
	Store         storage.Store
	MaxUpload     int64
	OperatorEmail string
}

type orderService struct {
	deps     OrderDeps
	uploader uploader
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewOrderService(deps OrderDeps, log *zap.Logger) OrderService {
	return &orderService{
		deps:     deps,
		uploader: uploader{store: deps.Store, maxUpload: deps.MaxUpload},
		logger:   log,
		tracer:   otel.Tracer("service/orders"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func shippingError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidShippingZone):
		return wrapCause(KindValidation, "Zona de envío inválida. Debe ser 'quito' o 'province'", err)
	case errors.Is(err, domain.ErrInvalidShippingMethod):
		return wrapCause(KindValidation, "Método de envío inválido. Debe ser 'courier' o 'public-meetup'", err)
	case errors.Is(err, domain.ErrMeetupOutsideQuito):
		return wrapCause(KindValidation, "La entrega en punto de encuentro solo está disponible en Quito", err)
	case errors.Is(err, domain.ErrMalformedAddress):
		return wrapCause(KindValidation, "La dirección de envío no tiene un formato válido", err)
	case errors.Is(err, domain.ErrIncompleteAddress):
		return wrapCause(KindValidation, "Todos los campos de la dirección de envío son obligatorios", err)
	}
	return err
}

func stockError(err error) error {
	var shortage *domain.StockShortageError
	if errors.As(err, &shortage) {
		return wrapCause(KindConflict, fmt.Sprintf(
			"No hay suficiente stock para el producto %s. Solo quedan %d unidades disponibles.",
			shortage.ProductName, shortage.Remaining,
		), err)
	}
	if errors.Is(err, domain.ErrCartProductMissing) {
		return wrapCause(KindNotFound, "Uno de los productos de tu carrito ya no existe", err)
	}
	return err
}

// Finalize validates the checkout, uploads the payment proof and writes the
// order, stock decrements, cart removal and operator notice in one
// transaction.
func (s *orderService) Finalize(ctx context.Context, principal domain.Principal, in FinalizeInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Finalize")
	defer span.End()

	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden realizar compras.")
	if err != nil {
		return nil, err
	}

	zone := domain.ShippingZone(strings.TrimSpace(in.ShippingZone))
	method := domain.ShippingMethod(strings.TrimSpace(in.ShippingMethod))
	if zone == "" || method == "" {
		return nil, validationError("La zona y el método de envío son obligatorios.")
	}
	if err := domain.ValidateShipping(zone, method); err != nil {
		return nil, shippingError(err)
	}

	span.SetAttributes(
		attribute.String("shipping.zone", string(zone)),
		attribute.String("shipping.method", string(method)),
	)

	var address *domain.ShippingAddress
	if method == domain.MethodCourier {
		if strings.TrimSpace(in.ShippingAddress) == "" {
			return nil, validationError("La dirección de envío es obligatoria para envíos por courier.")
		}
		address, err = domain.ParseShippingAddress(in.ShippingAddress)
		if err != nil {
			return nil, shippingError(err)
		}
		if in.PaymentProof == nil {
			return nil, validationError("El comprobante de pago es obligatorio cuando el pago es por transferencia.")
		}
		if err := s.uploader.validate(in.PaymentProof); err != nil {
			return nil, err
		}
	}

	customer, err := s.deps.Customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, notFoundError("Cliente no encontrado")
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	cart, err := s.deps.Carts.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, notFoundError("No tienes productos en tu carrito.")
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, notFoundError("No tienes productos en tu carrito.")
	}
	if err := cart.CheckStock(); err != nil {
		return nil, stockError(err)
	}

	var proofURL *string
	if method == domain.MethodCourier {
		url, err := s.uploader.upload(ctx, storage.FolderPaymentProofs, in.PaymentProof)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		proofURL = &url
	}

	var order *domain.Order
	err = s.deps.Transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		locked, err := s.deps.Carts.FindForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if locked.IsEmpty() {
			return repository.ErrCartNotFound
		}

		order, err = domain.NewOrderFromCart(locked, domain.OrderDraft{
			Customer:        customer,
			Zone:            zone,
			Method:          method,
			Address:         address,
			PaymentProofURL: proofURL,
		}, s.now())
		if err != nil {
			return err
		}

		if err := s.deps.Orders.Create(ctx, tx, order); err != nil {
			return err
		}

		for _, line := range locked.Items {
			if err := s.deps.Products.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &domain.StockShortageError{
						ProductID:   line.ProductID,
						ProductName: line.Product.Name,
						Remaining:   line.Product.Stock,
					}
				}
				return err
			}
		}

		if s.deps.OperatorEmail != "" {
			notice := domain.OrderCreatedNotification(s.deps.OperatorEmail, order, s.now())
			if err := s.deps.Notifications.Enqueue(ctx, tx, notice); err != nil {
				return err
			}
		}

		return s.deps.Carts.Delete(ctx, tx, locked.ID)
	})
	if err != nil {
		span.RecordError(err)
		if proofURL != nil {
			logger.Warn(ctx, s.logger, "Payment proof orphaned by failed order",
				zap.String("customer_id", customerID.String()),
				zap.String("payment_proof_url", *proofURL),
				zap.String("shipping_zone", string(zone)),
				zap.Error(err),
			)
		}
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, notFoundError("No tienes productos en tu carrito.")
		}
		var shortage *domain.StockShortageError
		if errors.As(err, &shortage) || errors.Is(err, domain.ErrCartProductMissing) {
			return nil, stockError(err)
		}
		return nil, fmt.Errorf("failed to finalize order: %w", err)
	}

	logger.Info(ctx, s.logger, "Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, principal domain.Principal, orderID string, in StatusInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !principal.IsAdministrator() {
		return nil, forbiddenError("Acceso denegado. Solo el administrador puede actualizar el estado de la compra.")
	}

	id, err := parseID(orderID, "ID de compra no válido.")
	if err != nil {
		return nil, err
	}

	status := domain.OrderStatus(strings.TrimSpace(in.Status))
	if !status.Valid() {
		return nil, validationError("Estado inválido. Debe ser 'pending' o 'shipped'.")
	}
	if status == domain.StatusPending {
		return nil, validationError("Estado inválido. Una compra solo puede pasar de 'pending' a 'shipped'.")
	}

	order, err := s.deps.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, notFoundError("Compra no encontrada.")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.String("shipping.method", string(order.ShippingMethod)),
	)

	if err := order.CheckShippable(in.ShippingProof != nil); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderAlreadyShipped):
			return nil, wrapCause(KindConflict, "La compra ya fue enviada.", err)
		case errors.Is(err, domain.ErrShippingProofRequired):
			return nil, wrapCause(KindValidation, "El comprobante de envío es obligatorio cuando el método es courier.", err)
		case errors.Is(err, domain.ErrShippingProofForbidden):
			return nil, wrapCause(KindValidation, "El comprobante de envío no aplica para entregas en punto de encuentro.", err)
		}
		return nil, wrapCause(KindValidation, "La compra tiene una combinación de zona y método de envío inválida.", err)
	}

	var notifications []*domain.Notification
	customer, err := s.deps.Customers.FindByID(ctx, order.CustomerID)
	switch {
	case errors.Is(err, repository.ErrCustomerNotFound):
		logger.Warn(ctx, s.logger, "Customer not found for shipped order, skipping notifications",
			zap.String("order_id", order.ID.String()),
			zap.String("customer_id", order.CustomerID.String()),
		)
	case err != nil:
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	var proofURL string
	if order.ShippingMethod == domain.MethodCourier {
		if err := s.uploader.validate(in.ShippingProof); err != nil {
			return nil, err
		}
		proofURL, err = s.uploader.upload(ctx, storage.FolderShippingProofs, in.ShippingProof)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	order.Ship(proofURL, s.now())
	if customer != nil {
		notifications = domain.OrderShippedNotifications(customer, order, s.now())
	}

	err = s.deps.Transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.deps.Orders.MarkShipped(ctx, tx, order); err != nil {
			return err
		}
		if len(notifications) == 0 {
			return nil
		}
		return s.deps.Notifications.Enqueue(ctx, tx, notifications...)
	})
	if err != nil {
		span.RecordError(err)
		if proofURL != "" {
			logger.Warn(ctx, s.logger, "Shipping proof orphaned by failed status update",
				zap.String("order_id", order.ID.String()),
				zap.String("shipping_proof_url", proofURL),
				zap.Error(err),
			)
		}
		if errors.Is(err, repository.ErrOrderNotPending) {
			return nil, wrapCause(KindConflict, "La compra ya fue enviada.", err)
		}
		return nil, fmt.Errorf("failed to ship order: %w", err)
	}

	logger.Info(ctx, s.logger, "Order shipped",
		zap.String("order_id", order.ID.String()),
		zap.Int("notifications", len(notifications)),
	)

	return order, nil
}

func (s *orderService) History(ctx context.Context, principal domain.Principal) ([]domain.OrderSummary, error) {
	var (
		orders []domain.OrderSummary
		err    error
	)

	switch {
	case principal.IsAdministrator():
		orders, err = s.deps.Orders.List(ctx, nil)
	case principal.IsCustomer():
		id := principal.ID()
		orders, err = s.deps.Orders.List(ctx, &id)
	default:
		return nil, forbiddenError("Acceso denegado. Debes estar autenticado para realizar esta acción")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if len(orders) == 0 {
		return nil, notFoundError("No tienes compras previas.")
	}
	return orders, nil
}

func (s *orderService) Detail(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	if principal.IsAnonymous() {
		return nil, forbiddenError("Acceso denegado. Debes estar autenticado para realizar esta acción")
	}

	id, err := parseID(orderID, "ID de compra no válido.")
	if err != nil {
		return nil, err
	}

	order, err := s.deps.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, notFoundError("Compra no encontrada.")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if customerID, ok := principal.CustomerID(); ok && order.CustomerID != customerID {
		return nil, forbiddenError("Acceso denegado. Solo puedes ver tus propias compras.")
	}

	return order, nil
}
