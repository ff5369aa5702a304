package model

import "time"

// Customer is the ordering party. ID is the external identity carried in the
// bearer token (the messaging-platform user id), so it is not generated here.
type Customer struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     *string
	Phone     *string
	Address   *string
	CreatedAt time.Time
}
