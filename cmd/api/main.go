package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"yatube/internal/config"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
	"yatube/internal/repository/redis"
	"yatube/internal/router"
	"yatube/internal/service"
	"yatube/internal/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err = pkg.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("setup logger")
	}
	log.WithField("config", cfg.String()).Info("starting yatube")
	gin.SetMode(cfg.GinMode)

	db, err := mysql.Open(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	// 自动建表，生产环境可以关掉
	if cfg.AutoMigrate {
		if err = mysql.Migrate(db); err != nil {
			log.WithError(err).Fatal("migrate")
		}
	}

	rdb, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	store, err := s3.New(s3.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.WithError(err).Fatal("init object storage")
	}
	bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
	if err = store.EnsureBucket(bucketCtx); err != nil {
		log.WithError(err).Warn("ensure bucket failed, image upload may not work")
	}
	cancelBucket()

	// outbox 投递：日志 + 可选的 kafka 和评论邮件
	senders := []service.Sender{service.LogSender}
	if cfg.KafkaEnabled() {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer producer.Close()
		senders = append(senders, service.KafkaSender(producer))
	}
	if cfg.SMTPEnabled() {
		mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		senders = append(senders, service.CommentMailSender(db, mailer))
	}

	r, err := router.New(router.Deps{
		DB:            db,
		Redis:         rdb,
		Store:         store,
		Tokens:        pkg.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL),
		PostsPerPage:  cfg.PostsPerPage,
		IndexCacheTTL: cfg.IndexCacheTTL,
		SecureCookie:  cfg.CookieSecure,
	})
	if err != nil {
		log.WithError(err).Fatal("init router")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	relayer := service.NewOutboxRelayer(db, service.Chain(senders...), cfg.OutboxBatchSize, cfg.OutboxMaxRetry, cfg.OutboxInterval)
	reconciler := service.NewFollowCountReconciler(db, cfg.ReconcileBatchSize, cfg.ReconcileInterval)
	wg.Add(2)
	go func() {
		defer wg.Done()
		relayer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	wg.Wait()
	log.Info("bye")
}
