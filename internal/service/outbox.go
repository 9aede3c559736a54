package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yatube/internal/model"
	"yatube/internal/pkg"
	"yatube/internal/repository/mysql"
)

// Sender 投递一条 outbox 事件
type Sender func(ctx context.Context, ob *model.Outbox) error

// OutboxRelayer 轮询 outbox 表并投递
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, batchSize, maxRetry int, interval time.Duration) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxRetry <= 0 {
		maxRetry = 5
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: batchSize,
		interval:  interval,
		maxRetry:  maxRetry,
		sender:    sender,
	}
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		log.WithError(err).Error("outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			log.WithError(err).WithFields(log.Fields{"id": ob.ID, "event": ob.EventType}).Warn("outbox send failed")
			if err := r.repo.RetryUpdate(ctx, ob.ID, r.maxRetry); err != nil {
				log.WithError(err).WithField("id", ob.ID).Error("outbox retry update failed")
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			log.WithError(err).WithField("id", ob.ID).Error("outbox success update failed")
			continue
		}
		sent++
	}
	return sent
}

// LogSender 没有配置 Kafka 时使用
func LogSender(_ context.Context, ob *model.Outbox) error {
	log.WithFields(log.Fields{
		"id":      ob.ID,
		"event":   ob.EventType,
		"key":     ob.Key,
		"payload": ob.Payload,
	}).Info("outbox event")
	return nil
}

// KafkaSender 以聚合 id 为 key 写入 Kafka
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		return p.Send(ctx, ob.Key, ob.EventType, []byte(ob.Payload))
	}
}

type commentEvent struct {
	CommentID    uint64 `json:"comment_id"`
	PostID       uint64 `json:"post_id"`
	AuthorID     uint64 `json:"author_id"`
	PostAuthorID uint64 `json:"post_author_id"`
	Text         string `json:"text"`
}

// CommentMailSender 新评论邮件提醒帖子作者，给自己评论不提醒
func CommentMailSender(db *gorm.DB, mailer pkg.Mailer) Sender {
	users := &mysql.UserRepository{DB: db}
	return func(ctx context.Context, ob *model.Outbox) error {
		if ob.EventType != model.EventCommentCreated {
			return nil
		}
		var ev commentEvent
		if err := json.Unmarshal([]byte(ob.Payload), &ev); err != nil {
			// 坏数据重试也没用
			log.WithError(err).WithField("id", ob.ID).Error("bad comment event payload")
			return nil
		}
		if ev.AuthorID == ev.PostAuthorID {
			return nil
		}
		owner, err := users.FindByID(ctx, ev.PostAuthorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if owner.Email == "" {
			return nil
		}
		commenter, err := users.FindByID(ctx, ev.AuthorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return mailer.Send(owner.Email, "Новый комментарий к вашей записи",
			pkg.CommentEmailHTML(commenter.Username, ev.Text, ev.PostID))
	}
}

// Chain 依次调用，任一失败则整条事件重试
func Chain(senders ...Sender) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		for _, s := range senders {
			if err := s(ctx, ob); err != nil {
				return err
			}
		}
		return nil
	}
}
