package bootstrap

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"

	"github.com/Goden-Gun/grpcbind/pkg/config"
)

// containerHook 添加容器ID到日志
type containerHook struct {
	containerID string
}

func (h *containerHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *containerHook) Fire(entry *log.Entry) error {
	entry.Data["container_id"] = h.containerID
	return nil
}

// detectContainerID 检测容器ID
func detectContainerID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	if data, err := os.ReadFile("/etc/hostname"); err == nil {
		if hostname := strings.TrimSpace(string(data)); hostname != "" {
			return hostname
		}
	}
	return "unknown"
}

// InitLogger 初始化日志：格式、级别、调用信息，File.Enabled 时同时输出到滚动文件
func InitLogger(cfg config.LogConfig, serviceName string) error {
	return initLogger(log.StandardLogger(), cfg, serviceName)
}

func initLogger(l *log.Logger, cfg config.LogConfig, serviceName string) error {
	cfg.ApplyDefaults()

	switch cfg.Format {
	case "text":
		l.SetFormatter(&log.TextFormatter{})
	default:
		l.SetFormatter(&log.JSONFormatter{})
	}

	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(log.InfoLevel)
		l.Warnf("invalid log level %q, fallback to info", cfg.Level)
	}

	l.SetReportCaller(cfg.ReportCaller)

	if cfg.File.Enabled {
		writer, err := newRotateWriter(cfg.File, serviceName)
		if err != nil {
			l.Errorf("设置日志输出失败: %v", err)
			return err
		}
		l.SetOutput(io.MultiWriter(os.Stdout, writer))
		l.AddHook(&containerHook{containerID: detectContainerID()})
	}
	return nil
}

// newRotateWriter 按天滚动的日志文件
func newRotateWriter(fileCfg config.LogFileConfig, serviceName string) (io.Writer, error) {
	if err := os.MkdirAll(fileCfg.Dir, 0o755); err != nil {
		return nil, err
	}

	filename := fileCfg.Filename
	if filename == "" {
		filename = serviceName
	}
	if filename == "" {
		filename = "grpcbind"
	}

	return rotatelogs.New(
		filepath.Join(fileCfg.Dir, filename+".%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(fileCfg.Dir, filename+".log")),
		rotatelogs.WithMaxAge(time.Duration(fileCfg.MaxAgeDays)*24*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(fileCfg.RotationDays)*24*time.Hour),
	)
}
