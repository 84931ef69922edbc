package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/repository"

	"github.com/google/uuid"
)

// CartLine is one requested (productId, quantity) pair. Nil fields were
// missing from the request.
type CartLine struct {
	ProductID *string
	Quantity  *int
}

// CartService manages the authenticated customer's cart
type CartService interface {
	AddItems(ctx context.Context, principal domain.Principal, lines []CartLine) (*domain.Cart, error)
	GetCart(ctx context.Context, principal domain.Principal) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, principal domain.Principal, productID string, quantity *int) (*domain.Cart, error)
	// RemoveItem returns the remaining cart, or nil when the last line was
	// removed and the cart was deleted.
	RemoveItem(ctx context.Context, principal domain.Principal, productID string) (*domain.Cart, error)
}

type cartService struct {
	transactor  repository.Transactor
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewCartService(
	transactor repository.Transactor,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		transactor:  transactor,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

func requireCustomer(principal domain.Principal, msg string) (uuid.UUID, error) {
	id, ok := principal.CustomerID()
	if !ok {
		return uuid.Nil, forbiddenError(msg)
	}
	return id, nil
}

func parseID(raw, msg string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationError(msg)
	}
	return id, nil
}

// AddItems validates and appends every line in order; the first failure
// aborts the whole batch.
func (s *cartService) AddItems(ctx context.Context, principal domain.Principal, lines []CartLine) (*domain.Cart, error) {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden agregar productos al carrito")
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, validationError("El carrito debe contener al menos un producto")
	}

	var cart *domain.Cart
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		cart, err = s.cartRepo.GetOrCreateForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := s.addLine(ctx, cart, line); err != nil {
				return err
			}
		}

		cart.UpdatedAt = s.now()
		return s.cartRepo.Save(ctx, tx, cart)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *cartService) addLine(ctx context.Context, cart *domain.Cart, line CartLine) error {
	if line.ProductID == nil || *line.ProductID == "" || line.Quantity == nil {
		return validationError("El producto y la cantidad son obligatorios")
	}
	if *line.Quantity < 1 {
		return validationError("La cantidad debe ser un número positivo")
	}

	productID, err := parseID(*line.ProductID, "ID de producto no válido")
	if err != nil {
		return err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFoundError(fmt.Sprintf("Producto con ID: %s no encontrado", productID))
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	if !product.HasStock(*line.Quantity) {
		return conflictError(fmt.Sprintf("No hay suficiente stock para el producto %s", product.Name))
	}

	if err := cart.AddLine(product, *line.Quantity); err != nil {
		if errors.Is(err, domain.ErrDuplicateCartLine) {
			return wrapCause(KindConflict, fmt.Sprintf("El producto %s ya está en el carrito", product.Name), err)
		}
		return err
	}
	return nil
}

func (s *cartService) GetCart(ctx context.Context, principal domain.Principal) (*domain.Cart, error) {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden ver su carrito")
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, notFoundError("No tienes productos en el carrito")
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, notFoundError("No tienes productos en el carrito")
	}

	return cart, nil
}

// UpdateQuantity replaces one line's quantity, pricing it at the product's
// current price.
func (s *cartService) UpdateQuantity(ctx context.Context, principal domain.Principal, productID string, quantity *int) (*domain.Cart, error) {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden actualizar la cantidad del producto")
	if err != nil {
		return nil, err
	}
	if productID == "" || quantity == nil {
		return nil, validationError("Datos inválidos. Asegúrate de enviar todos los campos requeridos")
	}
	if *quantity < 1 {
		return nil, validationError("La cantidad debe ser un número positivo")
	}

	id, err := parseID(productID, "ID de producto no válido")
	if err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		cart, err = s.cartRepo.FindForUpdate(ctx, tx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return notFoundError("Carrito no encontrado")
			}
			return err
		}

		if _, ok := cart.Find(id); !ok {
			return notFoundError("El producto no se encuentra en tu carrito")
		}

		product, err := s.productRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return notFoundError("Producto no existe")
			}
			return err
		}

		if !product.HasStock(*quantity) {
			return conflictError("No hay suficiente stock disponible")
		}

		if err := cart.SetQuantity(id, *quantity, product.Price); err != nil {
			return err
		}
		cart.UpdatedAt = s.now()
		return s.cartRepo.Save(ctx, tx, cart)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, principal domain.Principal, productID string) (*domain.Cart, error) {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden eliminar productos del carrito")
	if err != nil {
		return nil, err
	}

	id, err := parseID(productID, "ID del producto no válido")
	if err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		cart, err = s.cartRepo.FindForUpdate(ctx, tx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return notFoundError("Carrito no encontrado")
			}
			return err
		}

		if _, err := cart.RemoveLine(id); err != nil {
			if errors.Is(err, domain.ErrCartLineNotFound) {
				return notFoundError("Producto no está en tu carrito")
			}
			return err
		}

		if cart.IsEmpty() {
			return s.cartRepo.Delete(ctx, tx, cart.ID)
		}
		cart.UpdatedAt = s.now()
		return s.cartRepo.Save(ctx, tx, cart)
	})
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		return nil, nil
	}
	return cart, nil
}
