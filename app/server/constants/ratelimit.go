package constants

import "time"

// 针对未认证敏感接口的固定窗口限流参数
const (
	RateLimitKeyInit      = "init:%s"   // %s -> 客户端 IP
	RateLimitInitAttempts = 3
	RateLimitInitWindow   = 60 * time.Minute

	RateLimitKeySignIn      = "signin:%s" // %s -> 客户端 IP
	RateLimitSignInAttempts = 5
	RateLimitSignInWindow   = 15 * time.Minute
)
