package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"
	"video_course_backend/internal/config"
	"video_course_backend/internal/controller"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/service"
	"video_course_backend/pkg/configwatcher"
	"video_course_backend/pkg/database"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/monitoring"
	"video_course_backend/pkg/security"
	"video_course_backend/pkg/tracing"
	"video_course_backend/pkg/videohost"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	origins         *security.OriginList
	tracer          *sdktrace.TracerProvider
	cfgMu           sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	video    *repository.VideoRepository
	course   *repository.CourseRepository
	progress *repository.ProgressRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	video     *service.VideoService
	course    *service.CourseService
	catalog   *service.CatalogService
	progress  *service.ProgressService
	playback  *service.PlaybackService
	hub       *service.PlaybackHub
	rollupJob *service.RollupJob
}

type controllers struct {
	auth     *controller.AuthController
	video    *controller.VideoController
	course   *controller.CourseController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置文件变更后调用，只处理可以在线更新的部分
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.cfgMu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Config reloaded", zap.String("mode", cfg.Server.Mode))
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		video:    repository.NewVideoRepository(db),
		course:   repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	var host service.HostLookup
	if cfg.VideoHost.APIKey != "" {
		host = videohost.NewClient(cfg.VideoHost.APIBaseURL, cfg.VideoHost.APIKey, cfg.VideoHost.Timeout)
	}
	embedBase := cfg.VideoHost.EmbedBaseURL

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg, service.NewTokenDenyList(rdb))
	s.video = service.NewVideoService(repos.video, host, embedBase)
	s.progress = service.NewProgressService(repos.progress, repos.course, embedBase)
	s.course = service.NewCourseService(repos.course, repos.video, s.progress)
	s.catalog = service.NewCatalogService(repos.video, repos.course, s.progress, s.video)
	s.playback = service.NewPlaybackService(
		service.NewPlaybackStateStore(rdb, cfg.VideoHost.PlaybackTTL),
		repos.video,
		repos.course,
		repos.progress,
		s.progress,
	)
	s.rollupJob = service.NewRollupJob(s.progress)

	s.hub = service.NewPlaybackHub(s.playback)
	go s.hub.Run()

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		video:    controller.NewVideoController(s.video, s.catalog),
		course:   controller.NewCourseController(s.course, s.catalog, s.progress, s.storage),
		progress: controller.NewProgressController(s.progress, s.playback, s.hub, s.rollupJob),
		health:   controller.NewHealthController(db, rdb, s.hub),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.origins = security.NewOriginList(cfg.CORS.AllowedOrigins)
	a.RegisterConfigCallback(func(c *config.Config) {
		a.origins.Set(c.CORS.AllowedOrigins)
	})

	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 && cfg.RateLimit.WindowMinutes > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Build 在已经建立好的数据库和 Redis 连接上组装路由，测试也通过它构造应用
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	// 非 release 模式每次启动都迁移，release 模式需要 -migrate
	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer("video-course-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := Build(cfg, db, rdb)
	app.tracer = tp

	if err := app.services.rollupJob.Start(cfg.Jobs.RollupReconcileCron); err != nil {
		logger.Log.Fatal("Invalid rollup reconcile schedule", zap.Error(err))
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, filepath.Join(a.Config.ConfigDir, "config.yaml"), a.ApplyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.services.rollupJob.Stop()
	a.services.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
