package handler

import (
	"context"
	"net/http"
	"time"

	"pickupshop/internal/infra"
	"pickupshop/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// The SMTP breaker state and the email DLQ length are informational only.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.Breaker, dlq *worker.DeadLetters) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if smtpCB != nil {
			body["smtp"] = smtpCB.State().String()
		}
		if dlq != nil && redisStatus == "connected" {
			if n, err := dlq.Len(ctx, worker.QueueEmail); err == nil {
				body["email_dead_letters"] = n
			}
		}
		c.JSON(status, body)
	}
}
