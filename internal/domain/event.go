package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventDateLayout is the accepted wire format for event dates
const EventDateLayout = "2006-01-02"

// Event is a listed live session or release party
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Date      time.Time `json:"date" db:"event_date"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func ParseEventDate(raw string) (time.Time, error) {
	return time.Parse(EventDateLayout, raw)
}
