package cache

import (
	"context"
	"fmt"
	"time"
)

const batchProgressTTL = 24 * time.Hour

// BatchProgressSnapshot 批量状态更新进度快照
// 供管理端在多次续批调用之间查询进度。
type BatchProgressSnapshot struct {
	BatchID      string    `json:"batch_id"`
	Status       string    `json:"status"`
	ProcessedIDs []uint    `json:"processed_ids"`
	RemainingIDs []uint    `json:"remaining_ids"`
	IsComplete   bool      `json:"is_complete"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SaveBatchProgress 保存批量处理进度快照
func SaveBatchProgress(ctx context.Context, snapshot BatchProgressSnapshot) error {
	if snapshot.BatchID == "" {
		return nil
	}
	snapshot.UpdatedAt = time.Now()
	return SetJSON(ctx, batchProgressKey(snapshot.BatchID), snapshot, batchProgressTTL)
}

// GetBatchProgress 读取批量处理进度快照
func GetBatchProgress(ctx context.Context, batchID string) (*BatchProgressSnapshot, error) {
	if batchID == "" {
		return nil, nil
	}
	var snapshot BatchProgressSnapshot
	found, err := GetJSON(ctx, batchProgressKey(batchID), &snapshot)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

func batchProgressKey(batchID string) string {
	return fmt.Sprintf("batch:progress:%s", batchID)
}
