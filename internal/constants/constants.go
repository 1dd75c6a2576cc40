package constants

// 用户角色常量
const (
	RoleAdmin          = "admin"
	RoleDistributor    = "distributor"
	RoleSubDistributor = "sub_distributor"
	RoleRetailer       = "retailer"
	RoleStaff          = "staff"
)

// 交易状态常量
const (
	TransactionStatusPending  = "pending"
	TransactionStatusVerified = "verified"
	TransactionStatusApproved = "approved"
	TransactionStatusRejected = "rejected"
)

// 被动收益分佣常量
const (
	// PayoutMaxLevels 分佣链最大层级
	PayoutMaxLevels = 3
	// PayoutLevel1Multiplier 一级分佣倍率（每笔可计佣交易）
	PayoutLevel1Multiplier = 3
	// PayoutLevel2Multiplier 二级分佣倍率
	PayoutLevel2Multiplier = 1
	// PayoutLevel3Multiplier 三级分佣倍率
	PayoutLevel3Multiplier = 1
)

// 批量处理常量
const (
	// BatchDefaultSize 批量状态更新默认批次大小
	BatchDefaultSize = 10
	// BatchMaxSize 批量状态更新最大批次大小
	BatchMaxSize = 100
)

// 上级链解析重试常量
const (
	UplineResolveMaxAttempts = 3
	UplineResolveBackoffMS   = 200
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskTransactionPayout      = "task:transaction:payout"
	TaskTransactionStatusEmail = "task:transaction:status_email"
)
