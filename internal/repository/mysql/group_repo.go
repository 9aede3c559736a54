package mysql

import (
	"context"

	"gorm.io/gorm"

	"yatube/internal/model"
	"yatube/internal/pkg"
)

type GroupRepository struct {
	DB *gorm.DB
}

func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	return r.DB.WithContext(ctx).Create(g).Error
}

func (r *GroupRepository) FindBySlug(ctx context.Context, slug string) (*model.Group, error) {
	var group model.Group
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&group).Error
	return &group, err
}

func (r *GroupRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Group{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List 按标题排序分页
func (r *GroupRepository) List(ctx context.Context, rawPage string, perPage int) (pkg.Page[model.Group], error) {
	q := r.DB.WithContext(ctx).Model(&model.Group{}).Session(&gorm.Session{})
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return pkg.Page[model.Group]{}, err
	}
	w := pkg.Resolve(rawPage, count, perPage)
	var list []model.Group
	if w.Limit > 0 {
		if err := q.Order("title ASC, id ASC").Offset(w.Offset).Limit(w.Limit).Find(&list).Error; err != nil {
			return pkg.Page[model.Group]{}, err
		}
	}
	return pkg.NewPage(list, w), nil
}
