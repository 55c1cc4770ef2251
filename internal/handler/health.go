package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

func pingStatus(ctx context.Context, ping func(context.Context) error) dependencyStatus {
	start := time.Now()
	if err := ping(ctx); err != nil {
		return dependencyStatus{Status: "error", Error: err.Error()}
	}
	return dependencyStatus{Status: "connected", LatencyMS: time.Since(start).Milliseconds()}
}

// Health reports database, Redis and scheduler state. rdb and jobs may be
// nil; they are then reported as "disabled" and do not affect the result.
// A failing database or Redis yields 503.
func Health(db *gorm.DB, rdb *redis.Client, jobs JobRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := pingStatus(ctx, func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})

		redisStatus := dependencyStatus{Status: "disabled"}
		if rdb != nil {
			redisStatus = pingStatus(ctx, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}

		scheduler := "disabled"
		if jobs != nil {
			scheduler = "stopped"
			if jobs.Running() {
				scheduler = "running"
			}
		}

		status := http.StatusOK
		if dbStatus.Status == "error" || redisStatus.Status == "error" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"db":        dbStatus,
			"redis":     redisStatus,
			"scheduler": scheduler,
			"time":      time.Now().UTC(),
		})
	}
}
