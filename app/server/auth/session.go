package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talos-admin-panel/app/server/constants"
	"talos-admin-panel/app/server/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionInfo 是一次请求解析出的认证结果，后续的授权判断都以它为准。
type SessionInfo struct {
	User    models.User    `json:"user"`
	Session models.Session `json:"session"`
}

// GetSession 根据 cookie 中的令牌解析当前会话。
// 未认证（令牌缺失、无效、过期、会话已删除、用户已删除）返回 (nil, nil) ，
// 只有基础设施故障才作为 error 返回。
func (a *Auth) GetSession(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, nil
	}

	// 令牌无效或过期都视作未认证
	claims, err := a.jwt.ParseSession(token)
	if err != nil {
		return nil, nil
	}

	// 查询缓存
	cacheKey := fmt.Sprintf(constants.CacheKeySession, claims.ID)
	if cacheBytes, err := a.rdb.Get(ctx, cacheKey).Bytes(); err != nil {
		if !errors.Is(err, redis.Nil) {
			a.l.Error("failed to query cache for session", zap.String("id", claims.ID), zap.Error(err))
		}
	} else {
		var info SessionInfo
		if err = json.Unmarshal(cacheBytes, &info); err != nil {
			a.l.Error("failed to unmarshal session", zap.String("id", claims.ID), zap.Error(err))
			// 可能是无效的缓存，清理掉
			a.rdb.Del(ctx, cacheKey)
		} else if time.Now().Before(info.Session.ExpiresAt) {
			return &info, nil
		}
	}

	// 查询数据库
	var session models.Session
	if err := a.db.WithContext(ctx).First(&session, "id = ?", claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	// 过期的会话顺带清掉
	if !time.Now().Before(session.ExpiresAt) {
		if err := a.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", session.ID).Error; err != nil {
			a.l.Error("failed to delete expired session", zap.String("id", session.ID), zap.Error(err))
		}
		return nil, nil
	}

	var user models.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 用户已被删除，会话作废
			return nil, nil
		}
		return nil, fmt.Errorf("find session user: %w", err)
	}

	info := &SessionInfo{User: user, Session: session}
	a.cacheSession(ctx, info)

	return info, nil
}

// cacheSession 写入缓存，方便下一次查询；失败只记录日志。
func (a *Auth) cacheSession(ctx context.Context, info *SessionInfo) {
	cacheBytes, err := json.Marshal(info)
	if err != nil {
		a.l.Error("failed to marshal session", zap.String("id", info.Session.ID), zap.Error(err))
		return
	}

	a.rdb.Set(ctx, fmt.Sprintf(constants.CacheKeySession, info.Session.ID), cacheBytes, constants.CacheExpireSession)
}
