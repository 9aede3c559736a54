package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yatube/internal/repository/mysql"
)

type FollowService struct {
	repo  *mysql.FollowRepository
	users *mysql.UserRepository
}

// FollowCountReconciler 用户关注计数对账
type FollowCountReconciler struct {
	repo      *mysql.FollowCountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		repo:  &mysql.FollowRepository{DB: db},
		users: &mysql.UserRepository{DB: db},
	}
}

func NewFollowCountReconciler(db *gorm.DB, batchSize int, interval time.Duration) *FollowCountReconciler {
	if batchSize <= 0 {
		batchSize = 500 // 一次对账的用户数
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FollowCountReconciler{
		repo:      &mysql.FollowCountReconcilerRepo{DB: db},
		batchSize: batchSize,
		interval:  interval,
	}
}

// Follow 按用户名关注；重复关注不报错，changed 为 false
func (s *FollowService) Follow(ctx context.Context, userID uint64, username string) (bool, error) {
	authorID, err := s.resolve(ctx, userID, username)
	if err != nil {
		return false, err
	}
	return s.repo.Follow(ctx, userID, authorID)
}

// Unfollow 只删除这一对关系
func (s *FollowService) Unfollow(ctx context.Context, userID uint64, username string) (bool, error) {
	authorID, err := s.resolve(ctx, userID, username)
	if err != nil {
		return false, err
	}
	return s.repo.Unfollow(ctx, userID, authorID)
}

func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint64) (bool, error) {
	if userID == 0 || authorID == 0 {
		return false, ErrInvalidUser
	}
	return s.repo.IsFollowing(ctx, userID, authorID)
}

func (s *FollowService) resolve(ctx context.Context, userID uint64, username string) (uint64, error) {
	if userID == 0 {
		return 0, ErrInvalidUser
	}
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return 0, notFound(err)
	}
	if author.ID == userID {
		return 0, ErrSelfFollow
	}
	return author.ID, nil
}

// Run 对账定时任务
func (r *FollowCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce 用 id 游标走完整张用户表，返回修正的用户数
func (r *FollowCountReconciler) reconcileOnce(ctx context.Context) int {
	var lastID uint64
	fixed := 0
	for {
		users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			log.WithError(err).Error("reconcile list failed")
			return fixed
		}
		if len(users) == 0 {
			return fixed
		}
		for _, u := range users {
			// 先查 follows 表真实值，再和 users 表比对
			following, err := r.repo.RealFollowings(ctx, u.ID)
			if err != nil {
				continue
			}
			follower, err := r.repo.RealFollowers(ctx, u.ID)
			if err != nil {
				continue
			}
			changed := false
			if following != u.FollowingCount {
				if err := r.repo.FixFollowings(ctx, u.ID, following); err == nil {
					changed = true
				}
			}
			if follower != u.FollowerCount {
				if err := r.repo.FixFollowers(ctx, u.ID, follower); err == nil {
					changed = true
				}
			}
			if changed {
				fixed++
				log.WithField("user_id", u.ID).Info("follow counters reconciled")
			}
		}
		if len(users) < r.batchSize {
			return fixed
		}
		lastID = next
	}
}
