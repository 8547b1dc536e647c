package link

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"findee/drive"
)

// Config 链路参数
type Config struct {
	URL            string
	DialTimeout    time.Duration
	ReconnectDelay time.Duration
	QueueSize      int
	EventBuffer    int
	Header         http.Header
}

// Recorder 可选的指令/回执记录端（如 journal）
type Recorder interface {
	RecordCommand(cmd MotorCommand)
	RecordFeedback(fb MotorFeedback)
}

// Link 与机器人服务端的 WebSocket 链路：断线自动重连，
// 并作为 drive.Sender 把方向指令发往服务端
type Link struct {
	cfg    Config
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *ClientConn
	lastCmd  MotorCommand
	recorder Recorder

	connected atomic.Bool
	events    chan Event
	metrics   LinkMetrics

	now func() time.Time
}

var _ drive.Sender = (*Link)(nil)

// New 创建链路（不立即连接，调用 Run 开始工作）
func New(cfg Config) *Link {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	return &Link{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		events: make(chan Event, cfg.EventBuffer),
		now:    time.Now,
	}
}

// SetRecorder 须在 Run 之前设置
func (l *Link) SetRecorder(r Recorder) {
	l.mu.Lock()
	l.recorder = r
	l.mu.Unlock()
}

// Events 入站事件（服务端消息、连接状态与本地提示）
func (l *Link) Events() <-chan Event { return l.events }

func (l *Link) Metrics() *LinkMetrics { return &l.metrics }

func (l *Link) Connected() bool { return l.connected.Load() }

// LastCommand 最近一次成功入队的指令
func (l *Link) LastCommand() (MotorCommand, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCmd, l.lastCmd.Direction != drive.DirNone
}

// Run 连接并保持连接，直到 ctx 结束；断线后按固定间隔重连
func (l *Link) Run(ctx context.Context) error {
	attempts := 0
	sessions := 0
	for {
		ws, _, err := l.dialer.DialContext(ctx, l.cfg.URL, l.cfg.Header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempts++
			if attempts == 1 {
				l.publish(Notice{Level: "error", Message: fmt.Sprintf("cannot reach %s", l.cfg.URL)})
			}
			Log.Debugf("dial %s (attempt %d): %v", l.cfg.URL, attempts, err)
		} else {
			attempts = 0
			sessions++
			if sessions > 1 {
				l.metrics.IncReconnects()
			}
			err = l.serve(ctx, ws)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			Log.Warnf("connection lost: %v", err)
			l.publish(Notice{Level: "warning", Message: "socket disconnected from server"})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.ReconnectDelay):
		}
	}
}

// serve 单个连接的生命周期：读泵在当前协程，写泵独立协程
func (l *Link) serve(ctx context.Context, ws *websocket.Conn) error {
	c := NewClientConn(ws, l.cfg.QueueSize)
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
	l.connected.Store(true)
	l.publish(ConnState{Connected: true})
	Log.Infof("connected to %s", l.cfg.URL)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	err := c.readPump(l.handleInbound)

	l.connected.Store(false)
	l.mu.Lock()
	if l.conn == c {
		l.conn = nil
	}
	l.mu.Unlock()
	<-writerDone
	l.publish(ConnState{Connected: false})

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return errors.New("closed by server")
	}
	return err
}

// Emit 实现 drive.Sender：未连接时不排队，只记录并提示
func (l *Link) Emit(dir drive.Direction, speed int) {
	l.mu.Lock()
	c := l.conn
	rec := l.recorder
	l.mu.Unlock()

	if c == nil || !l.connected.Load() {
		l.metrics.IncNotConnected()
		Log.Warnf("robot not connected, dropping %s", dir)
		l.publish(Notice{Level: "warning", Message: "robot not connected"})
		return
	}

	now := l.now()
	b, err := newCommandEnvelope(dir, speed, now)
	if err != nil {
		Log.Errorf("encode command: %v", err)
		return
	}
	if !c.Enqueue(b) {
		l.metrics.IncDropped()
		Log.Warnf("send queue full, dropping %s", dir)
		l.publish(Notice{Level: "error", Message: fmt.Sprintf("command %s dropped", dir)})
		return
	}
	l.metrics.IncSent()
	cmd := MotorCommand{Direction: dir, Speed: speed, Timestamp: now.UnixMilli()}
	l.mu.Lock()
	l.lastCmd = cmd
	l.mu.Unlock()
	Log.Debugf("motor_control %s %d%%", dir, speed)
	if rec != nil {
		rec.RecordCommand(cmd)
	}
}

func (l *Link) handleInbound(payload []byte) {
	ev, err := decodeEnvelope(payload)
	if err != nil {
		l.metrics.IncDecodeErrors()
		Log.Warnf("inbound: %v", err)
		return
	}
	if ev == nil {
		return
	}
	if fb, ok := ev.(MotorFeedback); ok {
		if fb.Success {
			l.metrics.IncFeedbackOK()
		} else {
			l.metrics.IncFeedbackFailed()
			Log.Warnf("motor feedback error: direction=%s err=%s", fb.Direction, fb.Error)
		}
		l.mu.Lock()
		rec := l.recorder
		l.mu.Unlock()
		if rec != nil {
			rec.RecordFeedback(fb)
		}
	}
	l.publish(ev)
}

// publish 非阻塞投递，消费端跟不上时丢弃
func (l *Link) publish(ev Event) {
	select {
	case l.events <- ev:
	default:
		l.metrics.IncEventsDiscarded()
	}
}
