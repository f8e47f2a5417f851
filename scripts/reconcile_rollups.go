// 手动触发课程进度汇总重算脚本
//
// 主应用可以通过 jobs.rollup_reconcile_cron 定时执行同样的任务。
// 此脚本用于首次部署、批量导入学习记录或调整课时之后手动修正汇总。
//
// 用法: go run scripts/reconcile_rollups.go [-course <课程ID>]

package main

import (
	"context"
	"flag"
	"log"
	"video_course_backend/internal/config"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/service"
	"video_course_backend/pkg/database"
	"video_course_backend/pkg/logger"
)

func main() {
	courseID := flag.String("course", "", "只重算指定课程，默认全部")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	progress := service.NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewCourseRepository(db),
		cfg.VideoHost.EmbedBaseURL,
	)

	ctx := context.Background()
	log.Println("手动触发课程汇总重算...")
	var n int
	if *courseID != "" {
		n, err = progress.RecomputeCourse(ctx, *courseID, "script")
	} else {
		n, err = progress.RecomputeAll(ctx, "script")
	}
	if err != nil {
		log.Fatalf("重算失败: %v", err)
	}
	log.Printf("完成！共重算 %d 条汇总记录", n)
}
