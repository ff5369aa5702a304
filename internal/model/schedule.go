package model

import (
	"time"

	"github.com/google/uuid"
)

// PickupLocation is a physical place where customers collect their orders.
type PickupLocation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	District  string    `gorm:"not null"`
	Name      string    `gorm:"not null"`
	Address   *string
	CreatedAt time.Time
}

// Schedule is one pickup time slot: a location on a given date.
// (date, location) is unique.
type Schedule struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:idx_schedule_date_location"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_schedule_date_location"`
	PickupStart string    `gorm:"not null"` // HH:MM
	PickupEnd   string    `gorm:"not null"` // HH:MM
	Status      string    `gorm:"not null;default:'ACTIVE'"`
	CreatedAt   time.Time

	Location *PickupLocation `gorm:"foreignKey:LocationID"`
}
