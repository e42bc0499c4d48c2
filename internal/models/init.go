package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/logger"
)

// InitDefaultAdmin 初始化默认管理员账号
// 仅在表中不存在该用户名时创建，默认密码首次登录后应尽快修改。
func InitDefaultAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var existing Admin
	err := DB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username: username,
		Password: string(hashed),
		Nickname: "管理员",
		Role:     constants.AdminRoleSuper,
		IsActive: true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infow("admin_default_created", "username", username)
	return nil
}
