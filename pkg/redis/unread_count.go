package redis

import (
	"fmt"
	"time"
)

// 未读消息计数相关常量
const (
	UnreadCountKeyPrefix = "duochat:unread:" // 未读消息计数key前缀
	UnreadCountTTL       = 24 * time.Hour    // 计数TTL，避免无限增长
)

// IncrementUnreadCount 增加用户未读消息计数
// 发送消息时调用，无论接收者是否在线（已读回执才会消减）
func IncrementUnreadCount(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)

	if err := client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("增加未读消息计数失败: %w", err)
	}

	if err := client.Expire(ctx, key, UnreadCountTTL).Err(); err != nil {
		return fmt.Errorf("设置未读消息计数TTL失败: %w", err)
	}

	return nil
}

// DecrementUnreadCount 减少用户未读消息计数
func DecrementUnreadCount(userID uint) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)

	if err := client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("减少未读消息计数失败: %w", err)
	}

	// 计数降到0以下时删除key
	count, err := client.Get(ctx, key).Int64()
	if err == nil && count <= 0 {
		client.Del(ctx, key)
	}

	return nil
}

// GetUnreadCount 获取用户未读消息计数
// key不存在返回-1，表示需要回源数据库
func GetUnreadCount(userID uint) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)

	count, err := client.Get(ctx, key).Int64()
	if err != nil {
		if err.Error() == "redis: nil" {
			return -1, nil
		}
		return 0, fmt.Errorf("获取未读消息计数失败: %w", err)
	}

	return count, nil
}

// SetUnreadCount 设置用户未读消息计数（数据库回源后同步）
func SetUnreadCount(userID uint, count int64) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf("%s%d", UnreadCountKeyPrefix, userID)

	if count <= 0 {
		return client.Del(ctx, key).Err()
	}

	return client.Set(ctx, key, count, UnreadCountTTL).Err()
}
