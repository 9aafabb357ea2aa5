// 程序入口：仅负责读取配置、加载数据集并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"vote-map/internal/api"
	"vote-map/internal/atlas"
	"vote-map/internal/config"
	"vote-map/internal/logger"
	"vote-map/internal/middleware"
	"vote-map/internal/utils"
	"vote-map/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)
	l.Debug("config_inputs", "results", cfg.ResultsPath, "communes", cfg.CommuneGeoJSON, "departments", cfg.DepartmentGeoJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 数据集只加载一次；任一输入文件失败即退出
	a, err := atlas.Load(ctx, cfg.Sources(), l)
	if err != nil {
		l.Error("atlas_load_error", "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedisFromConfig(ctx, cfg)
	if rc != nil {
		defer rc.Close()
	}

	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(l))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.RateLimit.QPS))
		l.Info("rate_limit_enabled", "qps", cfg.RateLimit.QPS)
	}
	r.Mount(cfg.APIBase, api.BuildRoutes(a, api.NewMapCache(rc, cfg.MapCacheTTL()), api.Options{LocateRadiusKm: cfg.LocateRadiusKm}))

	// NOTE: 向前端暴露 API 基础路径，避免硬编码
	r.Get("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__=" + strconv.Quote(cfg.APIBase)))
		_, _ = w.Write([]byte("\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__=" + strconv.Quote(version.Commit)))
	})
	// 根路径跳转到首位候选人的省级地图
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		target := cfg.APIBase + "/healthz"
		if cs := a.Candidates(); len(cs) > 0 {
			target = cfg.APIBase + "/map.html?candidate=" + strconv.Itoa(cs[0].ID)
		}
		http.Redirect(w, r, target, http.StatusFound)
	})

	s := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_ok")
}
