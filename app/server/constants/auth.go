package constants

import "time"

const (
	SessionCookieName = "talos_session" // 会话 cookie 名称
	SessionDuration   = 7 * 24 * time.Hour
)

const (
	CacheKeySession    = "talos:session:%s" // %s -> session id
	CacheExpireSession = 1 * time.Hour
)
