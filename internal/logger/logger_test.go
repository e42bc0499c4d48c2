package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileWriteSyncerDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	if _, err := newFileWriteSyncer(Options{}); err != nil {
		t.Fatalf("create default write syncer failed: %v", err)
	}

	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(realTmpDir, defaultLogDirName)); err != nil {
		t.Fatalf("expected default log dir to be created: %v", err)
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{
		Dir:      tmpDir,
		Filename: "release.log",
	})
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{
		Dir:      tmpDir,
		Filename: "debug.log",
	})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestSugarHelpersWorkUninitialized(t *testing.T) {
	saved := L
	L = nil
	t.Cleanup(func() { L = saved })

	// 未调用 Init 时退回控制台 logger，不应 panic
	Infow("fallback_logger_check", "key", "value")
	if Z() == nil {
		t.Fatalf("Z should never return nil")
	}
	if S() == nil {
		t.Fatalf("S should never return nil")
	}
}
