package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"vinyl-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property: creating and reading back a product preserves every attribute
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(artist string, cents int64, genre string, stock int) bool {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Microsecond)

			product := &domain.Product{
				ID:        uuid.New(),
				Name:      "Disc " + uuid.NewString(),
				Artist:    artist,
				Price:     decimal.New(cents, -2),
				Genre:     genre,
				Stock:     stock,
				ImageURL:  "https://assets.example/" + uuid.NewString() + ".png",
				CreatedAt: now,
				UpdatedAt: now,
			}

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			return retrieved.Name == product.Name &&
				retrieved.Artist == product.Artist &&
				retrieved.Price.Equal(product.Price) &&
				retrieved.Genre == product.Genre &&
				retrieved.Stock == product.Stock &&
				retrieved.ImageURL == product.ImageURL
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) <= 100 }),
		gen.Int64Range(0, 9999999),
		gen.OneConstOf("Electrónica", "House", "Tecno", "Rock"),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_DuplicateName(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	existing := seedProduct(t, "10.00", 1)

	dup := *existing
	dup.ID = uuid.New()

	assert.ErrorIs(t, repo.Create(context.Background(), &dup), ErrProductAlreadyExists)
}

func TestProductRepository_ListFiltersByGenreAndQuery(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	p := seedProduct(t, "18.00", 4)
	p.Genre = "Funk"
	p.Artist = "Parliament " + uuid.NewString()
	p.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, p))

	products, total, err := repo.List(ctx, ProductFilter{Genre: "Funk", Query: p.Artist, SortBy: "price", SortOrder: SortOrderAsc})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)

	_, total, err = repo.List(ctx, ProductFilter{Genre: "Reggae", Query: p.Artist})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProductRepository_DecrementStockIsGuarded(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	p := seedProduct(t, "10.00", 3)

	err := NewTransactor(testDB).WithinTx(ctx, func(tx *sql.Tx) error {
		return repo.DecrementStock(ctx, tx, p.ID, 2)
	})
	require.NoError(t, err)

	err = NewTransactor(testDB).WithinTx(ctx, func(tx *sql.Tx) error {
		return repo.DecrementStock(ctx, tx, p.ID, 2)
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)
}

func TestProductRepository_ConcurrentDecrementsNeverOversell(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	p := seedProduct(t, "10.00", 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := NewTransactor(testDB).WithinTx(ctx, func(tx *sql.Tx) error {
				return repo.DecrementStock(ctx, tx, p.ID, 1)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, stored.Stock)
}

func TestProductRepository_DeleteMissing(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)

	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), ErrProductNotFound)
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}
