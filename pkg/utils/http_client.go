package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewAPIClient 创建统一配置的 Resty 客户端
// 它是全系统对外请求的统一入口：超时、重试、UA 都在这里收口
func NewAPIClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second // 拉单/建单可能比较慢，默认给 20s
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).                // 瞬时网络抖动自动重试
		SetRetryWaitTime(2*time.Second). // 重试间隔
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "StoreSync-Go-App/1.0")

	return client
}
