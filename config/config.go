package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"findee/drive"
)

// Config 控制台配置
type Config struct {
	Server  ServerConfig
	Drive   DriveConfig
	Log     LogConfig
	Admin   AdminConfig
	Journal JournalConfig
}

// ServerConfig 机器人服务端连接
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// DriveConfig 速度范围与键盘设置；hold_* 为终端自动重复的判定节奏
type DriveConfig struct {
	DefaultSpeed int           `mapstructure:"default_speed"`
	MinSpeed     int           `mapstructure:"min_speed"`
	MaxSpeed     int           `mapstructure:"max_speed"`
	SpeedStep    int           `mapstructure:"speed_step"`
	KeyMap       string        `mapstructure:"keymap"`
	HoldDelay    time.Duration `mapstructure:"hold_delay"`
	HoldRepeat   time.Duration `mapstructure:"hold_repeat"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// AdminConfig Addr 为空则不启动管理接口
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// JournalConfig Path 为空则不记录日志库
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// Load 默认值 → 配置文件（可选，path 为空时取 FINDEE_CONFIG）→ FINDEE_ 环境变量。
// 不做校验：调用方应用命令行覆盖后再调用 Validate
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.url", "ws://localhost:5000/ws")
	v.SetDefault("server.dial_timeout", "5s")
	v.SetDefault("server.reconnect_delay", "2s")
	v.SetDefault("drive.default_speed", drive.DefaultSpeed)
	v.SetDefault("drive.min_speed", drive.DefaultMinSpeed)
	v.SetDefault("drive.max_speed", drive.DefaultMaxSpeed)
	v.SetDefault("drive.speed_step", drive.DefaultSpeedStep)
	v.SetDefault("drive.keymap", "arrows")
	v.SetDefault("drive.hold_delay", "750ms")
	v.SetDefault("drive.hold_repeat", "250ms")
	v.SetDefault("log.file", "findee.log")
	v.SetDefault("log.level", "debug")
	v.SetDefault("admin.addr", "")
	v.SetDefault("journal.path", "")

	if path == "" {
		path = os.Getenv("FINDEE_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("FINDEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate 拒绝控制台无法运行的取值
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	d := c.Drive
	if d.MinSpeed < 0 || d.MaxSpeed > 100 || d.MinSpeed > d.MaxSpeed {
		return fmt.Errorf("drive: speed range [%d,%d] must lie within [0,100]", d.MinSpeed, d.MaxSpeed)
	}
	if d.SpeedStep <= 0 {
		return fmt.Errorf("drive.speed_step must be positive")
	}
	if _, ok := drive.KeyMapByName(d.KeyMap); !ok {
		return fmt.Errorf("drive.keymap: unknown keymap %q", d.KeyMap)
	}
	if d.HoldDelay <= 0 || d.HoldRepeat <= 0 {
		return fmt.Errorf("drive: hold_delay and hold_repeat must be positive")
	}
	return nil
}
