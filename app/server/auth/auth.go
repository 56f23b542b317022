package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"talos-admin-panel/app/server/constants"
	"talos-admin-panel/app/server/jwt"
	"talos-admin-panel/app/server/models"

	"github.com/alexedwards/argon2id"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Auth 集中管理凭据与会话：注册、登录、登出、改密、会话解析。
// 凭据（argon2id hash）只在这个包内出现，handler 层不接触明文以外的任何密码形式。
type Auth struct {
	l   *zap.Logger
	db  *gorm.DB
	rdb *redis.Client
	jwt *jwt.JWT
}

func New(l *zap.Logger, db *gorm.DB, rdb *redis.Client, j *jwt.JWT) *Auth {
	return &Auth{
		l:   l,
		db:  db,
		rdb: rdb,
		jwt: j,
	}
}

// SignUp 创建用户与对应凭据，角色固定为默认的 user ，需要管理员的由调用方在创建后提升。
func (a *Auth) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	// 检查邮箱占用
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count users by email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 用户与凭据在同一事务中创建
	user := models.User{
		Name:  name,
		Email: email,
		Role:  models.RoleUser,
	}
	if err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Account{
			UserID:   user.ID,
			Password: passwordHash,
		}).Error
	}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// SignIn 校验凭据并创建会话，返回写入 cookie 的签名令牌。
// 用户不存在、凭据缺失、密码不符都归并为 ErrInvalidCredentials ，不区分原因。
func (a *Auth) SignIn(ctx context.Context, email, password, ipAddress, userAgent string) (*SessionInfo, string, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	var account models.Account
	if err := a.db.WithContext(ctx).First(&account, "user_id = ?", user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find account: %w", err)
	}

	// 提取密码 hash 并进行校验
	if match, _, err := argon2id.CheckHash(password, account.Password); err != nil {
		return nil, "", fmt.Errorf("check password: %w", err)
	} else if !match {
		// 密码不一致
		return nil, "", ErrInvalidCredentials
	}

	// 创建会话
	session := models.Session{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(constants.SessionDuration),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := a.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	// 签出 cookie 令牌
	token, err := a.jwt.SignSession(&jwt.Session{
		ID:      session.ID,
		Expires: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	info := &SessionInfo{User: user, Session: session}
	a.cacheSession(ctx, info)

	return info, token, nil
}

// SignOut 删除会话记录并清理缓存，令牌随之失效。
func (a *Auth) SignOut(ctx context.Context, sessionID string) error {
	if err := a.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	a.rdb.Del(ctx, fmt.Sprintf(constants.CacheKeySession, sessionID))

	return nil
}

// ChangePassword 校验当前密码后替换凭据。
// 任何校验失败都归并为 ErrInvalidCredentials ，调用方不应向客户端透露细节。
func (a *Auth) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	var account models.Account
	if err := a.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find account: %w", err)
	}

	if match, _, err := argon2id.CheckHash(currentPassword, account.Password); err != nil {
		return fmt.Errorf("check password: %w", err)
	} else if !match {
		return ErrInvalidCredentials
	}

	newPasswordHash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := a.db.WithContext(ctx).Model(&account).Update("password", newPasswordHash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

// SessionCookie 构造会话 cookie ，过期时间与会话记录一致。
func SessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredSessionCookie 构造立即过期的同名 cookie ，用于登出时清除。
func ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
