// Точка входа sitecms — headless CMS маркетинговых сайтов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиент медиа-хранилища, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/sitecms/internal/api/handlers"
	"github.com/bigkaa/sitecms/internal/api/middleware"
	"github.com/bigkaa/sitecms/internal/api/openapi"
	"github.com/bigkaa/sitecms/internal/config"
	"github.com/bigkaa/sitecms/internal/database"
	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/schema"
	"github.com/bigkaa/sitecms/internal/media"
	"github.com/bigkaa/sitecms/internal/repository"
	"github.com/bigkaa/sitecms/internal/server"
	"github.com/bigkaa/sitecms/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("sitecms запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if cfg.WritebackSecret == "" {
		logger.Warn("WRITEBACK_SECRET не задан, /api/video-writeback будет отвечать 401")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	txRunner := repository.NewTxRunner(pool)
	docRepo := repository.NewDocumentRepository(pool, txRunner)
	userRepo := repository.NewUserRepository(pool)

	// 6. Клиент медиа-хранилища и разрешение тегов
	mediaClient, err := media.New(media.Config{
		CloudName:   cfg.CloudinaryCloudName,
		APIKey:      cfg.CloudinaryAPIKey,
		APISecret:   cfg.CloudinaryAPISecret,
		APIURL:      cfg.CloudinaryAPIURL,
		DeliveryURL: cfg.CloudinaryDeliveryURL,
		Timeout:     cfg.CloudinaryTimeout,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента медиа-хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	resolver := service.NewResolver(mediaClient, mediaClient.DeliveryURL(), mediaClient.CloudName(), logger)

	// 7. Блокировка обработки: Redis при нескольких репликах, иначе локальная
	var (
		locker       service.Locker = service.NewLocalLocker()
		redisChecker handlers.ReadinessChecker
	)
	if cfg.RedisURL != "" {
		redisLocker, lockErr := service.NewRedisLocker(cfg.RedisURL, cfg.ResolveLockTTL, logger)
		if lockErr != nil {
			logger.Error("Ошибка подключения к Redis", slog.String("error", lockErr.Error()))
			os.Exit(1)
		}
		defer func() { _ = redisLocker.Close() }()
		locker = redisLocker
		redisChecker = redisLocker
		logger.Info("Распределённая блокировка через Redis")
	}

	// 8. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	docSvc := service.NewDocumentService(schema.Default(), docRepo, cache, resolver, locker, logger)
	processingSvc := service.NewProcessingService(docSvc, resolver, locker, logger)
	writebackSvc := service.NewWritebackService(docSvc, cfg.WritebackSecret, logger)
	userSvc := service.NewUserService(userRepo, logger)

	// 9. Readiness checkers (PostgreSQL + IdP + Redis)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.JWKSClientTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker, redisChecker)

	// 10. API handler (реализует routes.ServerInterface)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		docSvc,
		processingSvc,
		writebackSvc,
		userSvc,
		logger,
	)

	// 11. JWT middleware: роль из БД имеет приоритет над группами IdP
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		userSvc.RoleLookup(),
		access.GroupMapping{
			Admin:    cfg.RoleAdminGroups,
			Editor:   cfg.RoleEditorGroups,
			Designer: cfg.RoleDesignerGroups,
		},
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. Проверка запросов по OpenAPI контракту
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "sitecms",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PgConnURL:     cfg.DatabaseURL,
		JWKSURL:       cfg.JWTJWKSURL,
		MediaAPIURL:   cfg.CloudinaryAPIURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, writebackSvc, validator)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("sitecms остановлен")
}
