package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"findee/config"
	"findee/dashboard"
	"findee/drive"
	"findee/journal"
	"findee/link"
)

// findee 入口：连接机器人服务端，在终端仪表盘中用键盘驾驶
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "findee:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath, server, admin string
	flag.StringVar(&cfgPath, "config", "", "config file (toml), overrides FINDEE_CONFIG")
	flag.StringVar(&server, "server", "", "robot server websocket url, e.g. ws://findee.local:5000/ws")
	flag.StringVar(&admin, "admin", "", "admin listen address, e.g. 127.0.0.1:9090")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	// 命令行覆盖之后再统一校验
	if server != "" {
		cfg.Server.URL = server
	}
	if admin != "" {
		cfg.Admin.Addr = admin
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := link.InitLogger(cfg.Log.File, cfg.Log.Level); err != nil {
		return err
	}
	defer link.SyncLogger()

	keymap, _ := drive.KeyMapByName(cfg.Drive.KeyMap)
	throttle := drive.NewThrottle(cfg.Drive.DefaultSpeed, cfg.Drive.MinSpeed, cfg.Drive.MaxSpeed, cfg.Drive.SpeedStep)

	robot := link.New(link.Config{
		URL:            cfg.Server.URL,
		DialTimeout:    cfg.Server.DialTimeout,
		ReconnectDelay: cfg.Server.ReconnectDelay,
	})

	var jn *journal.Journal
	if cfg.Journal.Path != "" {
		jn, err = journal.Open(cfg.Journal.Path, link.Log)
		if err != nil {
			return err
		}
		defer jn.Close()
		session := jn.NewSession()
		robot.SetRecorder(session)
		link.Log.Infof("journal %s session %s", cfg.Journal.Path, session.ID())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	linkDone := make(chan struct{})
	go func() {
		defer close(linkDone)
		if err := robot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			link.Log.Errorf("link: %v", err)
		}
	}()

	var srv *http.Server
	if cfg.Admin.Addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/admin/config", link.HandleAdminConfig(throttle))
		mux.HandleFunc("/metrics", link.HandleMetrics(robot))
		if jn != nil {
			mux.HandleFunc("/journal", jn.Handler())
		}
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: cfg.Admin.Addr, Handler: mux}
		go func() {
			link.Log.Infof("admin listening on %s", cfg.Admin.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				link.Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	model := dashboard.New(dashboard.Options{
		Sender:     robot,
		Events:     robot.Events(),
		Throttle:   throttle,
		KeyMap:     keymap,
		HoldDelay:  cfg.Drive.HoldDelay,
		HoldRepeat: cfg.Drive.HoldRepeat,
		Server:     cfg.Server.URL,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	// SIGTERM 也走仪表盘的退出流程，保证发出最后一条 stop
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		if _, ok := <-quit; ok {
			p.Send(dashboard.QuitMsg{})
		}
	}()

	link.Log.Infof("findee console started, server %s", cfg.Server.URL)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	link.Log.Info("shutting down...")
	// 取消后写协程会先写完队列里的 stop 再关闭连接
	cancel()
	select {
	case <-linkDone:
	case <-time.After(3 * time.Second):
		link.Log.Warn("link did not close in time")
	}
	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}
	return nil
}
