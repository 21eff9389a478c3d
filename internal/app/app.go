package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/recipebook/internal/config"
	"github.com/hitoshi/recipebook/internal/database"
	"github.com/hitoshi/recipebook/internal/favorite"
	"github.com/hitoshi/recipebook/internal/handler"
	"github.com/hitoshi/recipebook/internal/logger"
	"github.com/hitoshi/recipebook/internal/mealdb"
	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/recipe"
	"github.com/hitoshi/recipebook/internal/repository"
	"github.com/hitoshi/recipebook/internal/security"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、設定に従って構造化ログをセットアップする。
// 返されるcleanupは、Fluent Bitへの転送クライアントなど初期化で確保した資源を解放する。
func Init(w io.Writer) (*config.Config, *slog.Logger, func(), error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってロガーを組み立て直す
	cleanup := func() {}
	opts := logger.Options{Format: cfg.LogFormat, Level: cfg.LogLevel}
	if cfg.FluentHost != "" {
		client, err := logger.NewFluentClient(cfg.FluentHost, cfg.FluentPort, cfg.FluentTag)
		if err != nil {
			return nil, nil, nil, err
		}
		opts.Fluent = client
		cleanup = func() {
			if err := client.Close(); err != nil {
				slog.Warn("Fluent Bitクライアントのクローズに失敗しました", slog.String("error", err.Error()))
			}
		}
	}
	log := logger.Configure(w, opts)

	return cfg, log, cleanup, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, log, cleanup, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(ctx, cfg, log)
	default:
		return runServe(ctx, cfg, log)
	}
}

// store はバックエンドごとのお気に入りストアと、その接続を閉じる関数をまとめたもの。
type store struct {
	backend database.Backend
	repo    repository.FavoriteRepository
	close   func(ctx context.Context) error
}

// openStore は接続文字列のスキームからバックエンドを選び、お気に入りストアを構築する。
// 接続自体は最初のリクエストで確立される。
func openStore(cfg *config.Config) (*store, error) {
	backend, err := database.DetectBackend(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch backend {
	case database.BackendMongo:
		handle := database.NewMongoHandle(cfg.DatabaseURL, cfg.DatabaseName, cfg.DBConnectTimeout, repository.EnsureFavoriteIndexes)
		return &store{
			backend: backend,
			repo:    repository.NewMongoFavoriteRepo(handle),
			close:   handle.Close,
		}, nil
	case database.BackendPostgres:
		handle := database.NewPostgresHandle(cfg.DatabaseURL, cfg.DBConnectTimeout)
		return &store{
			backend: backend,
			repo:    repository.NewPostgresFavoriteRepo(handle),
			close:   handle.Close,
		}, nil
	default:
		return &store{
			backend: backend,
			repo:    repository.NewMemoryFavoriteRepo(),
			close:   func(context.Context) error { return nil },
		}, nil
	}
}

// newRegistry はアプリケーションのメトリクスとGo/プロセスのメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// buildRouter は全依存関係をワイヤリングしてルーターを構築する。
func buildRouter(cfg *config.Config, log *slog.Logger, repo repository.FavoriteRepository, rl *middleware.RateLimiter) http.Handler {
	reg, collector := newRegistry()

	// セキュリティサービス
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// レシピAPIクライアント
	mealClient := mealdb.NewClient(
		ssrfGuard.NewSafeClient(cfg.UpstreamTimeout),
		cfg.MealDBBaseURL,
		cfg.UpstreamMaxSize,
		collector,
		log,
	)

	// ドメインサービス
	favoriteService := favorite.NewService(repo, ssrfGuard, sanitizer, collector, log)
	recipeService := recipe.NewService(mealClient, favoriteService, log)

	return handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		Metrics:           collector,
		Logger:            log,
		FavoriteService:   handler.NewFavoriteServiceAdapter(favoriteService),
		MealService:       handler.NewMealServiceAdapter(recipeService),
		HealthChecker:     repo,
		MetricsHandler:    metrics.Handler(reg),
	})
}

// runServe はAPIサーバーモードで起動する。
// ストア接続はサーバーの終了理由にかかわらず、戻る前に閉じる。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	return serve(ctx, cfg, log, st)
}

// serve はstを使ってHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, st *store) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn("ストア接続のクローズに失敗しました", slog.String("error", err.Error()))
		}
	}()

	if st.backend == database.BackendPostgres {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitMutation))
	defer rl.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           buildRouter(cfg, log, st.repo, rl),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("API server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("backend", string(st.backend)),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを準備する。
// PostgreSQLは未適用のマイグレーションを順番に適用し、MongoDBは一意インデックスを作成する。
func runMigrate(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	backend, err := database.DetectBackend(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	log.Info("running database migrations",
		slog.String("backend", string(backend)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch backend {
	case database.BackendPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case database.BackendMongo:
		// 接続確立時の初期化処理でインデックスが作成される
		handle := database.NewMongoHandle(cfg.DatabaseURL, cfg.DatabaseName, cfg.DBConnectTimeout, repository.EnsureFavoriteIndexes)
		if _, err := handle.Acquire(ctx); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
		if err := handle.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("ストア接続のクローズに失敗しました", slog.String("error", err.Error()))
		}
	default:
		log.Info("メモリストアのためマイグレーションは不要です")
		return nil
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}
