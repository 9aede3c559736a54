package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/internal/model"
	"yatube/internal/pkg"
)

type CommentRepository struct {
	DB *gorm.DB
}

// Create 写评论和 comment_created 事件，postAuthorID 用于通知帖子作者
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment, postAuthorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventCommentCreated, pkg.MakeKeyFromID(c.PostID), map[string]any{
			"comment_id":     c.ID,
			"post_id":        c.PostID,
			"author_id":      c.AuthorID,
			"post_author_id": postAuthorID,
			"text":           c.Text,
		})
	})
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error) {
	list := []model.Comment{}
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID uint64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}
