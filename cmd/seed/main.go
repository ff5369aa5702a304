// cmd/seed/main.go: creates or refreshes the demo catalog.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"pickupshop/internal/config"
	"pickupshop/internal/infra"
	"pickupshop/internal/model"
	"pickupshop/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, true)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	ctx := context.Background()

	email := "demo@example.com"
	customer := &model.Customer{ID: "demo-customer", Name: "Demo Customer", Email: &email}
	if err := repository.NewCustomerRepository(db).Upsert(ctx, customer); err != nil {
		log.Fatal().Err(err).Msg("customer upsert")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		location := model.PickupLocation{District: "Central", Name: "Main counter"}
		if err := tx.Where(model.PickupLocation{District: location.District, Name: location.Name}).
			FirstOrCreate(&location).Error; err != nil {
			return err
		}

		tomorrow := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)
		schedule := model.Schedule{
			Date:        tomorrow,
			LocationID:  location.ID,
			PickupStart: "10:00",
			PickupEnd:   "12:00",
		}
		if err := tx.Where(model.Schedule{Date: schedule.Date, LocationID: schedule.LocationID}).
			FirstOrCreate(&schedule).Error; err != nil {
			return err
		}

		unit := "pack"
		setQty := 5
		setPrice := decimal.NewFromInt(90)
		products := []model.Product{
			{Name: "Strawberry", Price: decimal.NewFromInt(120), StockQuantity: 100},
			{Name: "Egg box", Price: decimal.NewFromInt(100), OneSetQuantity: &setQty, OneSetPrice: &setPrice, StockQuantity: 50, Unit: &unit},
		}
		for i := range products {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"price", "one_set_quantity", "one_set_price", "unit", "stock_quantity"}),
			}).Create(&products[i]).Error; err != nil {
				return err
			}
		}

		var strawberry model.Product
		if err := tx.Where("name = ?", "Strawberry").First(&strawberry).Error; err != nil {
			return err
		}
		tiers := []model.DiscountTier{
			{ProductID: strawberry.ID, Quantity: 2, Price: decimal.NewFromInt(200)},
			{ProductID: strawberry.ID, Quantity: 5, Price: decimal.NewFromInt(450)},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tiers).Error
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	fmt.Printf("Seeded customer %q, one pickup slot and two products\n", customer.ID)
}
