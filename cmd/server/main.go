package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/rafaelmp/stockbook/internal/adapter/handler"
	"github.com/rafaelmp/stockbook/internal/adapter/storage"
	"github.com/rafaelmp/stockbook/internal/core/service"
)

type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	MySQLDSN        string        `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/stockbook?parseTime=true&multiStatements=true"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	MaxOpenConns    int           `envconfig:"MYSQL_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `envconfig:"MYSQL_MAX_IDLE_CONNS" default:"25"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	var cfg Config
	if err := envconfig.Process("stockbook", &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Info("connected to mysql")

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("migrations applied")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Info("connected to redis")

	// Initialize adapters and service
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	transactionService := service.NewTransactionService(mysqlAdapter, redisAdapter)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(transactionService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Router(),
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	rdb.Close()
	db.Close()
	log.Info("connections closed")
}
