// Package testutil 测试用的 sqlite / miniredis 环境
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yatube/internal/model"
	"yatube/internal/repository/mysql"
)

// NewDB 每个测试一个独立的内存库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库按连接隔离，只保留一个连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, mysql.Migrate(db))
	return db
}

// NewRedis 启动 miniredis 并返回客户端
func NewRedis(t testing.TB) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateUser 直接落库一个用户，密码用最低成本 bcrypt
func CreateUser(t testing.TB, db *gorm.DB, username, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Username: username, Password: string(hash), Email: username + "@example.com"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateGroup(t testing.TB, db *gorm.DB, title, slug string) *model.Group {
	t.Helper()
	g := &model.Group{Title: title, Slug: slug, Description: "Тестовое описание"}
	require.NoError(t, db.Create(g).Error)
	return g
}

func CreatePost(t testing.TB, db *gorm.DB, author *model.User, group *model.Group, text string) *model.Post {
	t.Helper()
	p := &model.Post{AuthorID: author.ID, Text: text}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Omit("Author", "Group").Create(p).Error)
	return p
}
