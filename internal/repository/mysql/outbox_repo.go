package mysql

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"yatube/internal/model"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// insertOutbox 插入 outbox 事件表，必须传入事务
func insertOutbox(tx *gorm.DB, event, key string, fields map[string]any) error {
	fields["event"] = event
	fields["event_time"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return tx.Create(&model.Outbox{
		EventType: event,
		Key:       key,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}).Error
}

// ListPending 按 id 顺序取待投递事件
func (r *OutboxRepository) ListPending(ctx context.Context, batchSize int) ([]model.Outbox, error) {
	var list []model.Outbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败：重试次数+1，达到上限置为 failed
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64, maxRetry int) error {
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.Outbox{}).Where("id = ?", id).
		UpdateColumn("retry", gorm.Expr("retry + 1")).Error; err != nil {
		return err
	}
	return db.Model(&model.Outbox{}).Where("id = ? AND retry >= ?", id, maxRetry).
		UpdateColumn("status", model.OutboxFailed).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
