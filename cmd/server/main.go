package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/agent"
	"github.com/suPer8Hu/agent-chat/internal/chat"
	"github.com/suPer8Hu/agent-chat/internal/config"
	"github.com/suPer8Hu/agent-chat/internal/db"
	"github.com/suPer8Hu/agent-chat/internal/httpapi"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/agent-chat/internal/logging"
	"github.com/suPer8Hu/agent-chat/internal/models"
	"github.com/suPer8Hu/agent-chat/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFile)
	gin.SetMode(cfg.GinMode)

	gdb, err := db.Connect(cfg, log)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &chat.Session{}, &chat.Message{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Agent gateway (route by AGENT_BACKEND)
	target := cfg.AgentBaseURL
	if cfg.AgentBackend == "exec" {
		target = cfg.AgentCommand
	}
	gateway, err := agent.DefaultRegistry().Get(ctx, cfg.AgentBackend, target)
	if err != nil {
		log.Fatalf("agent gateway: %v", err)
	}

	var revoker handlers.TokenRevoker
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rds.Ping(pctx); err != nil {
		log.Warnf("redis unavailable, logout will not revoke tokens: %v", err)
		_ = rds.Close()
	} else {
		revoker = rds
		defer rds.Close()
	}
	cancel()

	h := handlers.NewHandler(gdb, cfg, log, gateway, revoker)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(h),
	}

	go func() {
		log.Infof("server started, addr=%s agent_backend=%s db=%s", cfg.HTTPAddr, cfg.AgentBackend, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
