package service

import (
	"context"

	"gorm.io/gorm"

	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
)

type GroupService struct {
	repo    *mysql.GroupRepository
	perPage int
}

func NewGroupService(db *gorm.DB, perPage int) *GroupService {
	return &GroupService{
		repo:    &mysql.GroupRepository{DB: db},
		perPage: perPage,
	}
}

func (s *GroupService) Create(ctx context.Context, title, slug, desc string) (*model.Group, error) {
	group := &model.Group{
		Title:       title,
		Slug:        slug,
		Description: desc,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		if mysql.IsDuplicate(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return group, nil
}

func (s *GroupService) GetBySlug(ctx context.Context, slug string) (*model.Group, error) {
	group, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err)
	}
	return group, nil
}

// Exists 供表单校验所选社区
func (s *GroupService) Exists(ctx context.Context, id uint64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *GroupService) List(ctx context.Context, rawPage string) (pkg.Page[model.Group], error) {
	return s.repo.List(ctx, rawPage, s.perPage)
}
