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

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/studytoday/internal/config"
	"github.com/hitoshi/studytoday/internal/console"
	"github.com/hitoshi/studytoday/internal/database"
	"github.com/hitoshi/studytoday/internal/handler"
	"github.com/hitoshi/studytoday/internal/logger"
	"github.com/hitoshi/studytoday/internal/metrics"
	"github.com/hitoshi/studytoday/internal/middleware"
	"github.com/hitoshi/studytoday/internal/repository"
	"github.com/hitoshi/studytoday/internal/security"
	"github.com/hitoshi/studytoday/internal/sefaria"
	"github.com/hitoshi/studytoday/internal/study"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、DEBUGに応じたレベルでJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, false)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, log, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に合わせてログレベルを切り替える
	log = logger.SetupDefault(w, cfg.Debug)

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// logOutにはログと警告、outにはshowの表示結果を出力する。argsにはos.Args[1:]を渡す。
func Run(logOut, out io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "80"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Bool("debug", cfg.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandShow:
		return runShow(ctx, cfg, log, out, logOut, commandArgs(args))
	case CommandMigrate:
		return runMigrate(cfg, log)
	default:
		return runServe(ctx, cfg, log)
	}
}

// components はFetch-and-Logに必要な依存関係をまとめた構造体。
type components struct {
	service  *study.Service
	repo     *repository.SQLCommandLogRepo
	registry *prometheus.Registry
}

// buildComponents はConfigから全依存関係をワイヤリングする。
func buildComponents(cfg *config.Config, log *slog.Logger) (*components, error) {
	// 1. 外向き通信の検証とHTTPクライアント
	guard := security.NewEgressGuard(cfg.StrictEgress)
	for _, endpoint := range []string{cfg.TopicEndpoint, cfg.CalendarEndpoint} {
		if err := guard.ValidateEndpoint(endpoint); err != nil {
			return nil, fmt.Errorf("endpoint rejected: %w", err)
		}
	}
	httpClient := guard.NewHTTPClient(cfg.FetchTimeout)
	log.Debug("外向き通信の設定",
		slog.Bool("strict_egress", guard.Strict()),
		slog.Duration("fetch_timeout", cfg.FetchTimeout),
	)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. Sefaria APIクライアントとログストア
	client := sefaria.NewClient(httpClient, log, collector, sefaria.ClientConfig{
		TopicEndpoint:    cfg.TopicEndpoint,
		CalendarEndpoint: cfg.CalendarEndpoint,
		MaxBodySize:      cfg.FetchMaxSize,
	})
	repo := repository.NewSQLCommandLogRepo(cfg.DatabaseURL)

	// 4. Fetch-and-Log
	service := study.NewService(client, repo, clockwork.NewRealClock(), collector, log)

	return &components{
		service:  service,
		repo:     repo,
		registry: registry,
	}, nil
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	c, err := buildComponents(cfg, log)
	if err != nil {
		return err
	}

	page, err := handler.NewPageRenderer(security.NewDescriptionSanitizer(), cfg.SiteBaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse page template: %w", err)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitPerMinute), log)
		defer rateLimiter.Stop()
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Debug:             cfg.Debug,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StudyService:      c.service,
		Page:              page,
		StoreChecker:      c.repo,
		MetricsHandler:    metrics.Handler(c.registry),
	})

	listener, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", cfg.ServerPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Sefaria APIへの取得時間に上限を設けない
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runShow は1回だけFetch-and-Logを実行し、結果をターミナルに表示する。
// 引数にファイルパスが指定された場合は表示したテキストをそのまま保存する。
// 取得・パースの失敗はエラーとして返し、ログストアへの書き込み失敗は警告のみ表示する。
func runShow(ctx context.Context, cfg *config.Config, log *slog.Logger, out, errOut io.Writer, args []string) error {
	c, err := buildComponents(cfg, log)
	if err != nil {
		return err
	}

	result, err := c.service.Fetch(ctx)
	if err != nil {
		return err
	}

	text, err := console.BuildText(result)
	if err != nil {
		return err
	}

	printer := console.NewPrinter(out, errOut)
	printer.PrintResult(text)

	if result.PersistErr != nil {
		printer.PrintWarning("the result could not be saved to the study log: " + result.PersistErr.Error())
	}

	if len(args) > 0 {
		path, err := console.SaveText(args[0], text)
		if err != nil {
			return err
		}
		printer.PrintSaved(path)
	}

	return nil
}

// runMigrate はログストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
// SQLiteのファイルパスはそのまま返す。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
