package controller

import (
	"net/http"
	"os"
	"runtime"
	"time"
	"video_course_backend/internal/service"
	"video_course_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"gorm.io/gorm"
)

type HealthController struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Hub       *service.PlaybackHub
	StartedAt time.Time
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, hub *service.PlaybackHub) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Hub: hub, StartedAt: time.Now()}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 状态以及进程资源占用
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up", "redis": "disabled"}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	stats := systemStats()
	if c.Hub != nil {
		stats["playbackConnections"] = c.Hub.ConnectionCount()
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
		"uptime":     time.Since(c.StartedAt).Round(time.Second).String(),
		"system":     stats,
	})
}

// systemStats 采集失败的指标直接省略
func systemStats() gin.H {
	stats := gin.H{"goroutines": runtime.NumGoroutine()}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memUsedPercent"] = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			stats["rssBytes"] = info.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			stats["cpuPercent"] = cpu
		}
	}
	return stats
}
