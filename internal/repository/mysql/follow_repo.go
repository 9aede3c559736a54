package mysql

import (
	"context"

	"gorm.io/gorm"

	"yatube/internal/model"
	"yatube/internal/pkg"
)

type FollowRepository struct {
	DB *gorm.DB
}

type FollowCountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账消息结构体
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

// Follow 建立关注关系（幂等）。首次建立返回 changed=true。
func (r *FollowRepository) Follow(ctx context.Context, userID, authorID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 由唯一索引裁决并发关注，冲突即已关注
		rel := model.Follow{UserID: userID, AuthorID: authorID}
		if err := tx.Create(&rel).Error; err != nil {
			if IsDuplicate(err) {
				return nil
			}
			return err
		}
		changed = true
		if err := r.adjustCounts(tx, userID, authorID, 1); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventFollow, pkg.MakeKeyFromID(userID), map[string]any{
			"user_id":   userID,
			"author_id": authorID,
		})
	})
	return changed, err
}

// Unfollow 删除该对关系的全部记录，没有记录时不报错
func (r *FollowRepository) Unfollow(ctx context.Context, userID, authorID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		if err := r.adjustCounts(tx, userID, authorID, -res.RowsAffected); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventUnfollow, pkg.MakeKeyFromID(userID), map[string]any{
			"user_id":   userID,
			"author_id": authorID,
		})
	})
	return changed, err
}

// IsFollowing 判断 userID 是否关注了 authorID
func (r *FollowRepository) IsFollowing(ctx context.Context, userID, authorID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// adjustCounts 调整关注数和粉丝数，不会减到负数
func (r *FollowRepository) adjustCounts(tx *gorm.DB, userID, authorID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("following_count", gorm.Expr("CASE WHEN following_count + ? < 0 THEN 0 ELSE following_count + ? END", delta, delta)).Error; err != nil {
		return err
	}
	return tx.Model(&model.User{}).
		Where("id = ?", authorID).
		UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count + ? < 0 THEN 0 ELSE follower_count + ? END", delta, delta)).Error
}

// ReconcileList 按 id 游标批量取用户
func (r *FollowCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowings 真实关注的人数量
func (r *FollowCountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// RealFollowers 真实粉丝数量
func (r *FollowCountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("author_id = ?", userID).
		Count(&n).Error
	return n, err
}

func (r *FollowCountReconcilerRepo) FixFollowings(ctx context.Context, userID uint64, n int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("following_count", n).Error
}

func (r *FollowCountReconcilerRepo) FixFollowers(ctx context.Context, userID uint64, n int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("follower_count", n).Error
}
