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
	"github.com/shopspring/decimal"
)

// ProductInput is a new catalog entry
type ProductInput struct {
	Name        string
	Artist      string
	Price       decimal.Decimal
	Genre       string
	CustomGenre string
	Stock       int
	Image       *storage.File
}

// ProductPatch carries the fields to change; nil means unchanged
type ProductPatch struct {
	Name        *string
	Artist      *string
	Price       *decimal.Decimal
	Genre       *string
	CustomGenre string
	Stock       *int
	Image       *storage.File
}

type ProductService interface {
	Create(ctx context.Context, principal domain.Principal, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, principal domain.Principal, id string, patch ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, principal domain.Principal, id string) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
}

type productService struct {
	productRepo repository.ProductRepository
	uploader    uploader
}

func NewProductService(productRepo repository.ProductRepository, store storage.Store, maxUpload int64) ProductService {
	return &productService{
		productRepo: productRepo,
		uploader:    uploader{store: store, maxUpload: maxUpload},
	}
}

func genreError(err error) error {
	if errors.Is(err, domain.ErrCustomGenreRequired) {
		return wrapCause(KindValidation, "Debes escribir un género personalizado", err)
	}
	return wrapCause(KindValidation, "Género no válido", err)
}

func validatePriceAndStock(price decimal.Decimal, stock int) error {
	if price.IsNegative() || stock < 0 {
		return validationError("El precio y el stock deben ser números válidos")
	}
	return nil
}

func (s *productService) Create(ctx context.Context, principal domain.Principal, in ProductInput) (*domain.Product, error) {
	if !principal.IsAdministrator() {
		return nil, forbiddenError("Acceso denegado. Solo el administrador puede registrar productos")
	}

	name := strings.TrimSpace(in.Name)
	artist := strings.TrimSpace(in.Artist)
	if name == "" || artist == "" || in.Genre == "" {
		return nil, validationError("Lo sentimos, debes llenar todos los campos")
	}
	if err := validatePriceAndStock(in.Price, in.Stock); err != nil {
		return nil, err
	}

	genre, err := domain.ResolveGenre(in.Genre, in.CustomGenre)
	if err != nil {
		return nil, genreError(err)
	}

	if in.Image == nil {
		return nil, validationError("La imagen es obligatoria")
	}
	if err := s.uploader.validate(in.Image); err != nil {
		return nil, err
	}

	imageURL, err := s.uploader.upload(ctx, storage.FolderProducts, in.Image)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Artist:    artist,
		Price:     in.Price,
		Genre:     genre,
		Stock:     in.Stock,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			return nil, conflictError("Lo sentimos, el producto ya se encuentra registrado")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *productService) Update(ctx context.Context, principal domain.Principal, id string, patch ProductPatch) (*domain.Product, error) {
	if !principal.IsAdministrator() {
		return nil, forbiddenError("Acceso denegado. Solo el administrador puede actualizar productos")
	}

	productID, err := parseID(id, fmt.Sprintf("Lo sentimos, no existe el producto con ID: %s", id))
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFoundError(fmt.Sprintf("Lo sentimos, no existe el producto con ID: %s", id))
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Artist != nil && strings.TrimSpace(*patch.Artist) != "" {
		product.Artist = strings.TrimSpace(*patch.Artist)
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if err := validatePriceAndStock(product.Price, product.Stock); err != nil {
		return nil, err
	}
	if patch.Genre != nil {
		genre, err := domain.ResolveGenre(*patch.Genre, patch.CustomGenre)
		if err != nil {
			return nil, genreError(err)
		}
		product.Genre = genre
	}

	if patch.Image != nil {
		if err := s.uploader.validate(patch.Image); err != nil {
			return nil, err
		}
		product.ImageURL, err = s.uploader.upload(ctx, storage.FolderProducts, patch.Image)
		if err != nil {
			return nil, err
		}
	}

	product.UpdatedAt = time.Now()
	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, notFoundError(fmt.Sprintf("Producto con ID: %s no encontrado o ya fue eliminado", id))
		case errors.Is(err, repository.ErrProductAlreadyExists):
			return nil, conflictError("Lo sentimos, el producto ya se encuentra registrado")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

func (s *productService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	if !principal.IsAdministrator() {
		return forbiddenError("Acceso denegado. Solo el administrador puede eliminar productos")
	}

	productID, err := parseID(id, fmt.Sprintf("Lo sentimos, no existe el producto con ID: %s", id))
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFoundError(fmt.Sprintf("Producto con ID: %s no encontrado o ya fue eliminado", id))
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := parseID(id, fmt.Sprintf("Lo sentimos, no existe el producto con ID: %s", id))
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFoundError(fmt.Sprintf("El producto con ID: %s no existe", id))
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}
