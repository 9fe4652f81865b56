package server

import (
	"context"
	"net/http"

	"lifetrace/app/config"
	"lifetrace/app/database"
	"lifetrace/app/handler"
	"lifetrace/app/logger"
	"lifetrace/app/middleware"
	"lifetrace/app/service"
	"lifetrace/app/utils/aihelper"
	"lifetrace/app/utils/downloader"
	"lifetrace/app/utils/ffmpeghelper"
	"lifetrace/app/utils/mediaparser"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config   *config.Config
	Logger   *logger.Logger
	gin      *gin.Engine
	http     *http.Server
	pipeline *service.VideoPipelineService
	cleanup  *service.CleanupService
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	router := gin.Default()

	// 组装视频处理管线
	speech, err := aihelper.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	bark := service.NewBarkService(cfg, log)
	fetcherCfg := downloader.DefaultConfig()
	fetcherCfg.Timeout = cfg.Video.DownloadTimeout

	pipeline := service.NewVideoPipelineService(
		cfg,
		log,
		database.GetDB(),
		mediaparser.New(cfg, log),
		downloader.NewFetcher(fetcherCfg),
		ffmpeghelper.New(cfg.Video.FFmpegPath, cfg.Video.ExtractTimeout),
		speech,
		bark,
	)

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:   cfg,
		Logger:   log,
		pipeline: pipeline,
		cleanup:  service.NewCleanupService(cfg, log, database.GetDB()),
	}

	// 设置路由
	s.setupRoutes(bark)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 先恢复上次进程退出时遗留的任务，再对外接收新提交
	if err := s.pipeline.Recover(); err != nil {
		return err
	}

	// 启动定期清理
	if err := s.cleanup.Start(); err != nil {
		return err
	}

	return s.http.ListenAndServe()
}

// Shutdown 优雅关闭：停止清理任务、等待在途管线任务、关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	s.cleanup.Stop()
	s.pipeline.Wait()

	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes(bark *service.BarkService) {
	// 创建处理器实例
	authHandler := handler.NewAuthHandler(s.Config)
	restRecordHandler := handler.NewRestRecordHandler(service.NewNotionService(s.Config, s.Logger), bark)
	gtdTaskHandler := handler.NewGtdTaskHandler()
	videoTaskHandler := handler.NewVideoTaskHandler(s.pipeline)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/me", authHandler.Me)

		// 休息记录相关路由
		rest := protected.Group("/rest-records")
		{
			rest.POST("/", restRecordHandler.CreateRestRecord)
			rest.GET("/", restRecordHandler.GetRestRecords)
			rest.GET("/latest", restRecordHandler.GetLatestRestRecord)
		}

		// GTD任务相关路由
		gtd := protected.Group("/gtd-tasks")
		{
			gtd.POST("/", gtdTaskHandler.CreateGtdTask)
			gtd.GET("/", gtdTaskHandler.GetGtdTasks)
			gtd.PUT("/:id", gtdTaskHandler.UpdateGtdTask)
			gtd.DELETE("/:id", gtdTaskHandler.DeleteGtdTask)
		}

		// 视频处理任务相关路由
		video := protected.Group("/video-tasks")
		{
			video.POST("/", videoTaskHandler.SubmitVideoTask)
			video.GET("/", videoTaskHandler.GetVideoTasks)
			video.GET("/:id", videoTaskHandler.GetVideoTask)
		}
	}
}
