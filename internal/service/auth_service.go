package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"video_course_backend/internal/config"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenDenyList 已注销的 JWT（按 jti）在过期之前一直拒绝
type TokenDenyList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func NewTokenDenyList(rdb *redis.Client) TokenDenyList {
	if rdb != nil {
		return &RedisDenyList{Client: rdb}
	}
	return &MemoryDenyList{items: make(map[string]time.Time)}
}

type RedisDenyList struct {
	Client *redis.Client
}

func (d *RedisDenyList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return d.Client.Set(ctx, "jwt:revoked:"+tokenID, "1", ttl).Err()
}

func (d *RedisDenyList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.Client.Exists(ctx, "jwt:revoked:"+tokenID).Result()
	return n > 0, err
}

type MemoryDenyList struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func (d *MemoryDenyList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for id, exp := range d.items {
		if now.After(exp) {
			delete(d.items, id)
		}
	}
	d.items[tokenID] = now.Add(ttl)
	return nil
}

func (d *MemoryDenyList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.items[tokenID]
	return ok && time.Now().Before(exp), nil
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	DenyList TokenDenyList
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, denyList TokenDenyList) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		DenyList: denyList,
	}
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:    email,
		Password: string(hashedPassword),
		FullName: in.FullName,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", zap.String("userId", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout 把令牌加入拒绝列表，保留到令牌本身过期
func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) error {
	if claims == nil {
		return util.ErrUnauthenticated
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	return s.DenyList.Revoke(ctx, claims.ID, ttl)
}

// Authenticate 解析令牌并检查是否已注销
func (s *AuthService) Authenticate(ctx context.Context, token string) (*util.Claims, error) {
	claims, err := util.ParseJWT(token, s.Cfg.JWT.Secret)
	if err != nil {
		return nil, util.ErrUnauthenticated
	}
	revoked, err := s.DenyList.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, util.ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) GetProfile(ctx context.Context, actor Actor) (*model.User, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(ctx, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

type ProfileInput struct {
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*model.User, error) {
	user, err := s.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	user.FullName = in.FullName
	user.AvatarURL = in.AvatarURL
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
