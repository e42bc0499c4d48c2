package app

import (
	"fmt"
	"os"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/logger"

	"go.uber.org/zap"
)

// 启动模式。all 在同一进程内跑 API 和 outbox worker，
// api / worker 用于分进程部署。
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数并校验启动模式
func normalizeOptions(opts Options) (Options, error) {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	switch opts.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return opts, fmt.Errorf("unknown run mode %q", opts.Mode)
	}
	if opts.ShutdownTimeout <= 0 {
		// worker 停机要等在途的同步任务收尾，比纯 API 进程留得久一些
		if opts.Mode == ModeAPI {
			opts.ShutdownTimeout = 10 * time.Second
		} else {
			opts.ShutdownTimeout = 30 * time.Second
		}
	}
	return opts, nil
}
