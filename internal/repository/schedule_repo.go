package repository

import (
	"context"

	"pickupshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleRepository is a read-only lookup; slots are managed elsewhere.
type ScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
}

type scheduleRepo struct{ db *gorm.DB }

func NewScheduleRepository(db *gorm.DB) ScheduleRepository { return &scheduleRepo{db: db} }

func (r *scheduleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	var s model.Schedule
	if err := r.db.WithContext(ctx).Preload("Location").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
