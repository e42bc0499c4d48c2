package service

import (
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理员认证服务
type AuthService struct {
	adminRepo repository.AdminRepository
	jwtCfg    config.JWTConfig
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo repository.AdminRepository, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{adminRepo: adminRepo, jwtCfg: jwtCfg}
}

// AdminClaims 管理员 JWT 声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Login 管理员登录，返回签发的 JWT
func (s *AuthService) Login(username, password string) (string, *models.Admin, error) {
	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if admin == nil {
		return "", nil, ErrAdminNotFound
	}
	if !admin.IsActive {
		return "", nil, ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return "", nil, ErrPasswordIncorrect
	}

	now := time.Now()
	admin.LastLogin = &now
	if err := s.adminRepo.Update(admin); err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(admin, now)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// ParseToken 解析并校验 JWT
func (s *AuthService) ParseToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(s.jwtCfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ChangePassword 修改管理员密码
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrAdminNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(oldPassword)); err != nil {
		return ErrPasswordIncorrect
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin.Password = string(hashed)
	return s.adminRepo.Update(admin)
}

func (s *AuthService) issueToken(admin *models.Admin, now time.Time) (string, error) {
	expireHours := s.jwtCfg.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	claims := AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			Subject:   admin.Username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}
