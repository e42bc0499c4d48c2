package public

import "github.com/puntoz/puntoz/internal/provider"

// Handler 前台/内部接口处理器入口
// 说明：该处理器用于礼品领取页与 POS/CRM 内部 API。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
