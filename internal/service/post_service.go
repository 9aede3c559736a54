package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yatube/internal/form"
	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
)

// ImageStore 帖子图片的对象存储
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

type PostService struct {
	repo     *mysql.PostRepository
	comments *mysql.CommentRepository
	users    *mysql.UserRepository
	follows  *FollowService
	store    ImageStore
	perPage  int
}

// PostDetail 帖子详情页
type PostDetail struct {
	Post        *model.Post
	PostCounter int64
	Comments    []model.Comment
	ImageURL    string
}

// Profile 作者主页
type Profile struct {
	Author      *model.User
	Page        pkg.Page[model.Post]
	PostCounter int64
	Following   bool
}

func NewPostService(db *gorm.DB, store ImageStore, perPage int) *PostService {
	return &PostService{
		repo:     &mysql.PostRepository{DB: db},
		comments: &mysql.CommentRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		follows:  NewFollowService(db),
		store:    store,
		perPage:  perPage,
	}
}

// Create 作者由服务端决定，图片先上传再落库
func (s *PostService) Create(ctx context.Context, authorID uint64, f *form.PostForm) (*model.Post, error) {
	post := &model.Post{AuthorID: authorID}
	f.ApplyTo(post)

	if f.Image != nil {
		key, err := s.saveImage(ctx, f.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if post.Image != "" {
			s.removeImage(ctx, post.Image)
		}
		return nil, err
	}
	return post, nil
}

// Update 原地修改；没有上传新图片时保留旧图
func (s *PostService) Update(ctx context.Context, post *model.Post, f *form.PostForm) error {
	oldImage := post.Image
	f.ApplyTo(post)

	if f.Image != nil {
		key, err := s.saveImage(ctx, f.Image)
		if err != nil {
			return err
		}
		post.Image = key
	}

	if err := s.repo.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			s.removeImage(ctx, post.Image)
			post.Image = oldImage
		}
		return err
	}
	if oldImage != "" && post.Image != oldImage {
		s.removeImage(ctx, oldImage)
	}
	return nil
}

func (s *PostService) Delete(ctx context.Context, post *model.Post) error {
	if err := s.repo.Delete(ctx, post.ID); err != nil {
		return err
	}
	if post.Image != "" {
		s.removeImage(ctx, post.Image)
	}
	return nil
}

func (s *PostService) Get(ctx context.Context, id uint64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

func (s *PostService) Detail(ctx context.Context, id uint64) (*PostDetail, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counter, err := s.repo.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	detail := &PostDetail{Post: post, PostCounter: counter, Comments: comments}
	if post.Image != "" {
		if detail.ImageURL, err = s.store.URL(ctx, post.Image); err != nil {
			log.WithError(err).WithField("key", post.Image).Warn("presign image failed")
		}
	}
	return detail, nil
}

func (s *PostService) ByGroup(ctx context.Context, groupID uint64, rawPage string) (pkg.Page[model.Post], error) {
	return s.repo.ListByGroup(ctx, groupID, rawPage, s.perPage)
}

func (s *PostService) Followed(ctx context.Context, userID uint64, rawPage string) (pkg.Page[model.Post], error) {
	return s.repo.ListFollowed(ctx, userID, rawPage, s.perPage)
}

// Profile viewerID 为 0 表示匿名访问
func (s *PostService) Profile(ctx context.Context, username string, viewerID uint64, rawPage string) (*Profile, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err)
	}
	page, err := s.repo.ListByAuthor(ctx, author.ID, rawPage, s.perPage)
	if err != nil {
		return nil, err
	}
	profile := &Profile{Author: author, Page: page, PostCounter: page.Count}
	if viewerID != 0 {
		if profile.Following, err = s.follows.IsFollowing(ctx, viewerID, author.ID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// AddComment 作者和帖子由服务端决定
func (s *PostService) AddComment(ctx context.Context, post *model.Post, authorID uint64, f *form.CommentForm) (*model.Comment, error) {
	comment := &model.Comment{PostID: post.ID, AuthorID: authorID}
	f.ApplyTo(comment)
	if err := s.comments.Create(ctx, comment, post.AuthorID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *PostService) saveImage(ctx context.Context, img *form.Image) (string, error) {
	key := fmt.Sprintf("posts/%s.%s", uuid.NewString(), img.Format)
	if err := s.store.Put(ctx, key, img.ContentType, img.Data); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

func (s *PostService) removeImage(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("remove image failed")
	}
}
