package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/internal/model"
	"yatube/internal/pkg"
)

type PostRepository struct {
	DB *gorm.DB
}

// Create 写帖子并在同一事务中写 outbox
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventPostCreated, pkg.MakeKeyFromID(post.AuthorID), map[string]any{
			"post_id":   post.ID,
			"author_id": post.AuthorID,
			"group_id":  post.GroupID,
		})
	})
}

// Update 原地更新，作者不变
func (r *PostRepository) Update(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"text":       post.Text,
			"group_id":   post.GroupID,
			"image":      post.Image,
			"updated_at": time.Now(),
		}).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	return &post, err
}

// Delete 硬删除帖子及其评论
func (r *PostRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Post{}, id).Error
	})
}

func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Post{}).Count(&count).Error
	return count, err
}

func (r *PostRepository) CountByAuthor(ctx context.Context, authorID uint64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	return count, err
}

// ListAll 全站帖子
func (r *PostRepository) ListAll(ctx context.Context, rawPage string, perPage int) (pkg.Page[model.Post], error) {
	return r.page(r.DB.WithContext(ctx).Model(&model.Post{}), rawPage, perPage)
}

func (r *PostRepository) ListByGroup(ctx context.Context, groupID uint64, rawPage string, perPage int) (pkg.Page[model.Post], error) {
	q := r.DB.WithContext(ctx).Model(&model.Post{}).Where("group_id = ?", groupID)
	return r.page(q, rawPage, perPage)
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID uint64, rawPage string, perPage int) (pkg.Page[model.Post], error) {
	q := r.DB.WithContext(ctx).Model(&model.Post{}).Where("author_id = ?", authorID)
	return r.page(q, rawPage, perPage)
}

// ListFollowed userID 关注的作者发的帖子
func (r *PostRepository) ListFollowed(ctx context.Context, userID uint64, rawPage string, perPage int) (pkg.Page[model.Post], error) {
	authors := r.DB.Model(&model.Follow{}).Select("author_id").Where("user_id = ?", userID)
	q := r.DB.WithContext(ctx).Model(&model.Post{}).Where("author_id IN (?)", authors)
	return r.page(q, rawPage, perPage)
}

// page 先 count 再按窗口取数据，默认按发布时间倒序
func (r *PostRepository) page(q *gorm.DB, rawPage string, perPage int) (pkg.Page[model.Post], error) {
	q = q.Session(&gorm.Session{})
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return pkg.Page[model.Post]{}, err
	}
	w := pkg.Resolve(rawPage, count, perPage)
	var list []model.Post
	if w.Limit > 0 {
		err := q.Preload("Author").
			Preload("Group").
			Order("created_at DESC, id DESC").
			Offset(w.Offset).
			Limit(w.Limit).
			Find(&list).Error
		if err != nil {
			return pkg.Page[model.Post]{}, err
		}
	}
	return pkg.NewPage(list, w), nil
}
