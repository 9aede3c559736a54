package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb *goredis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *goredis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Health mysql 不可用返回 503；redis 只影响缓存，记为 degraded
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		log.WithError(err).Error("mysql health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "mysql": err.Error()})
		return
	}
	status := gin.H{"status": "ok", "mysql": "ok", "redis": "ok"}
	if err = h.rdb.Ping(ctx).Err(); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
	}
	c.JSON(http.StatusOK, status)
}
