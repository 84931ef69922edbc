package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenreOther requires the caller to supply a custom genre name
const GenreOther = "Otro"

// Genres lists the catalog genres accepted on create and update
var Genres = []string{"Electrónica", "House", "Tecno", "Rock", "Pop", "Reggae", "Funk", "Hip-Hop", "Latino", GenreOther}

var (
	ErrInvalidGenre        = errors.New("invalid genre")
	ErrCustomGenreRequired = errors.New("custom genre required")
)

// Product represents a record in the catalog
type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Artist    string          `json:"artist" db:"artist"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Genre     string          `json:"genre" db:"genre"`
	Stock     int             `json:"stock" db:"stock"`
	ImageURL  string          `json:"image_url" db:"image_url"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// HasStock reports whether quantity units can be sold right now
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

// ResolveGenre checks genre against the whitelist and substitutes the
// custom name when genre is GenreOther.
func ResolveGenre(genre, custom string) (string, error) {
	genre = strings.TrimSpace(genre)

	known := false
	for _, g := range Genres {
		if g == genre {
			known = true
			break
		}
	}
	if !known {
		return "", ErrInvalidGenre
	}

	if genre == GenreOther {
		custom = strings.TrimSpace(custom)
		if custom == "" {
			return "", ErrCustomGenreRequired
		}
		return custom, nil
	}

	return genre, nil
}
