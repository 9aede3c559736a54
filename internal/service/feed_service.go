package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
	"yatube/internal/repository/redis"
)

// lockWait 没抢到重建锁时等待别人写缓存的时间
const lockWait = 50 * time.Millisecond

// FeedService 首页信息流，整页缓存在 redis
type FeedService struct {
	repo    *mysql.PostRepository
	cache   *redis.FeedCache
	lock    *redis.DistLock
	perPage int
}

func NewFeedService(db *gorm.DB, rdb *goredis.Client, ttl time.Duration, perPage int) *FeedService {
	return &FeedService{
		repo:    &mysql.PostRepository{DB: db},
		cache:   redis.NewFeedCache(rdb, ttl),
		lock:    &redis.DistLock{Client: rdb},
		perPage: perPage,
	}
}

// Index 缓存期内返回同一份结果，新帖要等缓存过期或 ClearCache 后才可见
func (s *FeedService) Index(ctx context.Context, rawPage string) (pkg.Page[model.Post], error) {
	if page, ok := s.cached(ctx, rawPage); ok {
		return page, nil
	}

	token := uuid.NewString()
	locked, err := s.lock.Acquire(ctx, rawPage, token)
	if err != nil {
		log.WithError(err).Warn("feed lock unavailable")
		return s.repo.ListAll(ctx, rawPage, s.perPage)
	}
	if !locked {
		// 别人正在重建，稍等后再读一次缓存
		select {
		case <-ctx.Done():
			return pkg.Page[model.Post]{}, ctx.Err()
		case <-time.After(lockWait):
		}
		if page, ok := s.cached(ctx, rawPage); ok {
			return page, nil
		}
		return s.repo.ListAll(ctx, rawPage, s.perPage)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), rawPage, token); err != nil {
			log.WithError(err).Warn("feed lock release failed")
		}
	}()

	page, err := s.repo.ListAll(ctx, rawPage, s.perPage)
	if err != nil {
		return page, err
	}
	data, err := json.Marshal(page)
	if err != nil {
		return page, nil
	}
	if err := s.cache.Set(ctx, rawPage, data); err != nil {
		log.WithError(err).Warn("feed cache set failed")
	}
	return page, nil
}

// ClearCache 手动清空首页缓存
func (s *FeedService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

func (s *FeedService) cached(ctx context.Context, rawPage string) (pkg.Page[model.Post], bool) {
	var page pkg.Page[model.Post]
	data, ok, err := s.cache.Get(ctx, rawPage)
	if err != nil {
		log.WithError(err).Warn("feed cache get failed")
		return page, false
	}
	if !ok {
		return page, false
	}
	if err := json.Unmarshal(data, &page); err != nil {
		log.WithError(err).Warn("feed cache entry corrupted")
		return page, false
	}
	return page, true
}
