package service

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"yatube/internal/form"
	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
	"yatube/internal/repository/redis"
)

type UserService struct {
	repo     *mysql.UserRepository
	sessions *redis.SessionRepository
	tokens   *pkg.TokenIssuer
}

type SignupInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

func NewUserService(db *gorm.DB, rdb *goredis.Client, tokens *pkg.TokenIssuer) *UserService {
	return &UserService{
		repo:     &mysql.UserRepository{DB: db},
		sessions: &redis.SessionRepository{Client: rdb, TTL: tokens.TTL()},
		tokens:   tokens,
	}
}

func (s *UserService) Register(ctx context.Context, in SignupInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if !form.ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:  username,
		Password:  string(hash),
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err = s.repo.Create(ctx, user); err != nil {
		if mysql.IsDuplicate(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Login 校验密码，签发 token 并写入 redis
func (s *UserService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	if err = s.sessions.Save(ctx, user.ID, token); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.sessions.Delete(ctx, userID)
}

// Authenticate 解析 token 并和 redis 中保存的比对，通过后续期
func (s *UserService) Authenticate(ctx context.Context, token string) (uint64, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	stored, err := s.sessions.Get(ctx, claims.UserID)
	if errors.Is(err, redis.ErrTokenNotFound) {
		return 0, ErrUnauthenticated
	}
	if err != nil {
		return 0, err
	}
	// 账号已在别处登录
	if stored != token {
		return 0, ErrUnauthenticated
	}
	return claims.UserID, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}
