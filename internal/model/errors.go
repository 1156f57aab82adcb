package model

import "errors"

// 错误分类
// HTTP层将其映射为状态码；实时层对非认证错误只记录日志不上抛
var (
	// ErrAuthentication 凭证缺失、格式错误、过期或指向不存在的用户
	ErrAuthentication = errors.New("authentication error")
	// ErrValidation 请求载荷不合法（如资料更新包含白名单外字段）
	ErrValidation = errors.New("validation error")
	// ErrNotFound 用户或消息不存在
	ErrNotFound = errors.New("not found")
	// ErrPersistence 存储不可用或写入失败
	ErrPersistence = errors.New("persistence error")
)
