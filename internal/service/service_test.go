package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/internal/form"
	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/testutil"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) URL(_ context.Context, key string) (string, error) {
	return "http://media.local/" + key, nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func gifImage() *form.Image {
	return &form.Image{
		Data:        []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"),
		Format:      "gif",
		ContentType: "image/gif",
	}
}

func TestPostServiceCreateAndDetail(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	store := newFakeStore()
	svc := NewPostService(db, store, 10)
	author := testutil.CreateUser(t, db, "leo", "pass")
	group := testutil.CreateGroup(t, db, "Тестовая группа", "test-slug")

	f := &form.PostForm{Text: "Тестовый текст", GroupID: &group.ID, Image: gifImage()}
	post, err := svc.Create(ctx, author.ID, f)
	require.NoError(t, err)
	require.NotZero(t, post.ID)
	assert.Equal(t, author.ID, post.AuthorID)
	assert.Contains(t, post.Image, "posts/")
	assert.True(t, store.has(post.Image))

	detail, err := svc.Detail(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тестовый текст", detail.Post.Text)
	assert.Equal(t, "leo", detail.Post.Author.Username)
	require.NotNil(t, detail.Post.Group)
	assert.Equal(t, "test-slug", detail.Post.Group.Slug)
	assert.Equal(t, int64(1), detail.PostCounter)
	assert.Equal(t, "http://media.local/"+post.Image, detail.ImageURL)
	assert.Empty(t, detail.Comments)

	_, err = svc.Detail(ctx, post.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostServiceCreateStoreFailure(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStore()
	store.putErr = errors.New("s3 down")
	svc := NewPostService(db, store, 10)
	author := testutil.CreateUser(t, db, "leo", "pass")

	_, err := svc.Create(context.Background(), author.ID, &form.PostForm{Text: "x", Image: gifImage()})
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&model.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPostServiceUpdateKeepsAuthorAndSwapsImage(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	store := newFakeStore()
	svc := NewPostService(db, store, 10)
	author := testutil.CreateUser(t, db, "leo", "pass")
	group := testutil.CreateGroup(t, db, "g", "g")

	post, err := svc.Create(ctx, author.ID, &form.PostForm{Text: "old", Image: gifImage()})
	require.NoError(t, err)
	oldKey := post.Image

	// 不传图片时保留旧图
	require.NoError(t, svc.Update(ctx, post, &form.PostForm{Text: "new", GroupID: &group.ID}))
	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, author.ID, got.AuthorID)
	assert.Equal(t, oldKey, got.Image)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, group.ID, *got.GroupID)

	require.NoError(t, svc.Update(ctx, got, &form.PostForm{Text: "newer", Image: gifImage()}))
	assert.NotEqual(t, oldKey, got.Image)
	assert.False(t, store.has(oldKey))
	assert.True(t, store.has(got.Image))
	assert.Nil(t, got.GroupID)
}

func TestPostServiceDelete(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	store := newFakeStore()
	svc := NewPostService(db, store, 10)
	author := testutil.CreateUser(t, db, "leo", "pass")
	reader := testutil.CreateUser(t, db, "reader", "pass")

	post, err := svc.Create(ctx, author.ID, &form.PostForm{Text: "bye", Image: gifImage()})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, post, reader.ID, &form.CommentForm{Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, post))
	_, err = svc.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.has(post.Image))

	var n int64
	require.NoError(t, db.Model(&model.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPostServiceComments(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := NewPostService(db, newFakeStore(), 10)
	author := testutil.CreateUser(t, db, "leo", "pass")
	reader := testutil.CreateUser(t, db, "reader", "pass")
	post := testutil.CreatePost(t, db, author, nil, "text")

	c, err := svc.AddComment(ctx, post, reader.ID, &form.CommentForm{Text: "Тестовый комментарий"})
	require.NoError(t, err)
	assert.Equal(t, reader.ID, c.AuthorID)
	assert.Equal(t, post.ID, c.PostID)

	detail, err := svc.Detail(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Тестовый комментарий", detail.Comments[0].Text)
	assert.Equal(t, "reader", detail.Comments[0].Author.Username)
}

func TestPostServiceProfileAndFollowed(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := NewPostService(db, newFakeStore(), 10)
	follows := NewFollowService(db)
	author := testutil.CreateUser(t, db, "author", "pass")
	reader := testutil.CreateUser(t, db, "reader", "pass")
	stranger := testutil.CreateUser(t, db, "stranger", "pass")
	for range 3 {
		testutil.CreatePost(t, db, author, nil, "post")
	}

	p, err := svc.Profile(ctx, "author", 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.PostCounter)
	assert.Equal(t, 3, p.Page.Len())
	assert.False(t, p.Following)

	_, err = follows.Follow(ctx, reader.ID, "author")
	require.NoError(t, err)

	p, err = svc.Profile(ctx, "author", reader.ID, "")
	require.NoError(t, err)
	assert.True(t, p.Following)

	feed, err := svc.Followed(ctx, reader.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, feed.Len())

	feed, err = svc.Followed(ctx, stranger.ID, "")
	require.NoError(t, err)
	assert.Zero(t, feed.Len())

	_, err = svc.Profile(ctx, "nobody", 0, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowService(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := NewFollowService(db)
	a := testutil.CreateUser(t, db, "a", "pass")
	b := testutil.CreateUser(t, db, "b", "pass")

	_, err := svc.Follow(ctx, a.ID, "a")
	assert.ErrorIs(t, err, ErrSelfFollow)
	_, err = svc.Follow(ctx, a.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Follow(ctx, 0, "b")
	assert.ErrorIs(t, err, ErrInvalidUser)

	changed, err := svc.Follow(ctx, a.ID, "b")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = svc.Follow(ctx, a.ID, "b")
	require.NoError(t, err)
	assert.False(t, changed)

	ok, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	changed, err = svc.Unfollow(ctx, a.ID, "b")
	require.NoError(t, err)
	assert.True(t, changed)
	ok, err = svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowCountReconciler(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	follows := NewFollowService(db)
	a := testutil.CreateUser(t, db, "a", "pass")
	b := testutil.CreateUser(t, db, "b", "pass")
	c := testutil.CreateUser(t, db, "c", "pass")
	_, err := follows.Follow(ctx, a.ID, "b")
	require.NoError(t, err)

	// 人为打乱计数
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", a.ID).UpdateColumn("following_count", 7).Error)
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", c.ID).UpdateColumn("follower_count", 3).Error)

	// batch 为 1，确认游标能走完所有用户
	r := NewFollowCountReconciler(db, 1, time.Minute)
	assert.Equal(t, 2, r.reconcileOnce(ctx))

	var users []model.User
	require.NoError(t, db.Order("id").Find(&users).Error)
	require.Len(t, users, 3)
	assert.Equal(t, int64(1), users[0].FollowingCount)
	assert.Equal(t, int64(1), users[1].FollowerCount)
	assert.Zero(t, users[2].FollowerCount)
	assert.Equal(t, b.ID, users[1].ID)

	assert.Zero(t, r.reconcileOnce(ctx))
}

func TestOutboxRelayer(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo", "pass")
	svc := NewPostService(db, newFakeStore(), 10)
	_, err := svc.Create(ctx, author.ID, &form.PostForm{Text: "hello"})
	require.NoError(t, err)

	var got []model.Outbox
	relayer := NewOutboxRelayer(db, func(_ context.Context, ob *model.Outbox) error {
		got = append(got, *ob)
		return nil
	}, 10, 3, time.Second)

	assert.Equal(t, 1, relayer.drainOnce(ctx))
	require.Len(t, got, 1)
	assert.Equal(t, model.EventPostCreated, got[0].EventType)
	assert.Equal(t, pkg.MakeKeyFromID(author.ID), got[0].Key)
	assert.Contains(t, got[0].Payload, `"event":"post_created"`)

	// 已投递的不再重复
	assert.Zero(t, relayer.drainOnce(ctx))
}

func TestOutboxRelayerGivesUp(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo", "pass")
	_, err := NewPostService(db, newFakeStore(), 10).Create(ctx, author.ID, &form.PostForm{Text: "hello"})
	require.NoError(t, err)

	calls := 0
	relayer := NewOutboxRelayer(db, func(context.Context, *model.Outbox) error {
		calls++
		return errors.New("broker down")
	}, 10, 2, time.Second)

	relayer.drainOnce(ctx)
	relayer.drainOnce(ctx)
	relayer.drainOnce(ctx)
	assert.Equal(t, 2, calls)

	var ob model.Outbox
	require.NoError(t, db.First(&ob).Error)
	assert.Equal(t, model.OutboxFailed, ob.Status)
	assert.Equal(t, 2, ob.Retry)
}

func TestCommentMailSender(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "author", "pass")
	reader := testutil.CreateUser(t, db, "reader", "pass")
	post := testutil.CreatePost(t, db, author, nil, "text")
	svc := NewPostService(db, newFakeStore(), 10)

	_, err := svc.AddComment(ctx, post, reader.ID, &form.CommentForm{Text: "nice <b>post</b>"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, post, author.ID, &form.CommentForm{Text: "thanks"})
	require.NoError(t, err)

	mailer := &fakeMailer{}
	relayer := NewOutboxRelayer(db, Chain(LogSender, CommentMailSender(db, mailer)), 10, 3, time.Second)
	assert.Equal(t, 2, relayer.drainOnce(ctx))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "author@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, "reader")
	assert.Contains(t, mailer.sent[0].body, "nice &lt;b&gt;post&lt;/b&gt;")
}

func TestChainStopsOnError(t *testing.T) {
	second := false
	s := Chain(
		func(context.Context, *model.Outbox) error { return errors.New("boom") },
		func(context.Context, *model.Outbox) error { second = true; return nil },
	)
	require.Error(t, s(context.Background(), &model.Outbox{}))
	assert.False(t, second)
}
