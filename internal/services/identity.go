package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"coursehub/internal/config"
	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

const (
	wechatSessionURL = "https://api.weixin.qq.com/sns/jscode2session"
	exchangeCacheTTL = 5 * time.Minute
	maxNicknameLen   = 30
)

// ErrUpstream 身份提供方调用失败
var ErrUpstream = errors.New("identity provider failure")

// CodeExchanger 用一次性 code 换取稳定的外部身份 ID
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

type JWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Profile 当前用户资料及其内容统计
type Profile struct {
	models.User
	EvaluationCount int64 `json:"evaluation_count"`
	CommentCount    int64 `json:"comment_count"`
}

type IdentityService struct {
	db        *gorm.DB
	log       *logger.Logger
	secret    []byte
	tokenTTL  time.Duration
	exchanger CodeExchanger
	exchanges *utils.TTLCache[string]
	now       func() time.Time
}

func NewIdentityService(db *gorm.DB, cfg *config.Config, exchanger CodeExchanger, log *logger.Logger) (*IdentityService, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	cache, err := utils.NewTTLCache[string](1024, exchangeCacheTTL)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdentityService{
		db:        db,
		log:       log.With("service", "IdentityService"),
		secret:    []byte(cfg.SecretKey),
		tokenTTL:  ttl,
		exchanger: exchanger,
		exchanges: cache,
		now:       time.Now,
	}, nil
}

// NewCodeExchanger 按配置选择身份交换方式；开发模式必须显式开启
func NewCodeExchanger(cfg *config.Config) CodeExchanger {
	switch {
	case cfg.AuthDevMode:
		return DevExchanger{}
	case cfg.WechatAppID != "" && cfg.WechatSecret != "":
		return NewWechatExchanger(nil, cfg.WechatAppID, cfg.WechatSecret)
	default:
		return unconfiguredExchanger{}
	}
}

// Login 用 code 登录，首次登录自动创建用户
func (s *IdentityService) Login(ctx context.Context, code string) (*models.User, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", invalid("缺少登录 code")
	}

	openID, ok := s.exchanges.Get(code)
	if !ok {
		var err error
		openID, err = s.exchanger.Exchange(ctx, code)
		if err != nil {
			s.log.Warn("code exchange failed", "error", err)
			return nil, "", err
		}
		s.exchanges.Set(code, openID)
	}

	user, err := s.findOrCreate(ctx, openID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user logged in", "user_id", user.ID, "openid", openID)
	return user, token, nil
}

func (s *IdentityService) findOrCreate(ctx context.Context, openID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where(models.User{OpenID: openID}).
		Attrs(models.User{Nickname: utils.DefaultNickname, AvatarURL: utils.GetRandomEmoji()}).
		FirstOrCreate(&user).Error
	if err == nil {
		return &user, nil
	}
	if !isUniqueViolation(err) {
		return nil, err
	}
	// 并发首次登录，另一请求已创建
	if err := s.db.WithContext(ctx).Where("open_id = ?", openID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueToken 签发 HS256 令牌
func (s *IdentityService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ResolveToken 解析令牌对应的用户。令牌缺失、格式错误、过期、签名不符或用户不存在时返回 nil, nil
func (s *IdentityService) ResolveToken(ctx context.Context, tokenString string) (*models.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, nil
	}
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Me 返回当前用户资料
func (s *IdentityService) Me(ctx context.Context, user *models.User) (*Profile, error) {
	if user == nil {
		return nil, unauthorized()
	}
	profile := &Profile{User: *user}
	if err := s.db.WithContext(ctx).Model(&models.Evaluation{}).Where("user_id = ?", user.ID).Count(&profile.EvaluationCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&profile.CommentCount).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateNickname 修改本人昵称
func (s *IdentityService) UpdateNickname(ctx context.Context, user *models.User, nickname string) (*models.User, error) {
	if user == nil {
		return nil, unauthorized()
	}
	nickname = utils.StripHTML(nickname)
	if n := utf8.RuneCountInString(nickname); n == 0 || n > maxNicknameLen {
		return nil, invalid(fmt.Sprintf("昵称长度需在 1-%d 个字符之间", maxNicknameLen))
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("nickname", nickname).Error; err != nil {
		return nil, err
	}
	var updated models.User
	if err := s.db.WithContext(ctx).First(&updated, user.ID).Error; err != nil {
		return nil, mapStoreError(err, "用户不存在")
	}
	return &updated, nil
}

// DevExchanger 开发模式：不访问微信，按 code 派生稳定且互不相同的模拟身份
type DevExchanger struct{}

func (DevExchanger) Exchange(_ context.Context, code string) (string, error) {
	sum := blake2b.Sum256([]byte(code))
	return "mock_" + hex.EncodeToString(sum[:16]), nil
}

type unconfiguredExchanger struct{}

func (unconfiguredExchanger) Exchange(context.Context, string) (string, error) {
	return "", errors.Join(ErrUpstream, errors.New("微信登录未配置"))
}

// WechatExchanger 调用小程序 jscode2session 接口
type WechatExchanger struct {
	httpClient *http.Client
	endpoint   string
	appID      string
	secret     string
}

func NewWechatExchanger(httpClient *http.Client, appID, secret string) *WechatExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WechatExchanger{httpClient: httpClient, endpoint: wechatSessionURL, appID: appID, secret: secret}
}

type wechatSession struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

func (w *WechatExchanger) Exchange(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("appid", w.appID)
	q.Set("secret", w.secret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", errors.Join(ErrUpstream, fmt.Errorf("jscode2session: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Join(ErrUpstream, fmt.Errorf("jscode2session: status %d", resp.StatusCode))
	}
	var session wechatSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", errors.Join(ErrUpstream, fmt.Errorf("decode jscode2session: %w", err))
	}
	if session.ErrCode != 0 {
		// 40029 invalid code, 40163 code been used
		if session.ErrCode == 40029 || session.ErrCode == 40163 {
			return "", invalid("登录 code 无效或已使用")
		}
		return "", errors.Join(ErrUpstream, fmt.Errorf("jscode2session: %d %s", session.ErrCode, session.ErrMsg))
	}
	if session.OpenID == "" {
		return "", errors.Join(ErrUpstream, errors.New("jscode2session: empty openid"))
	}
	return session.OpenID, nil
}
