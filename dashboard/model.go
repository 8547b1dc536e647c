package dashboard

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"findee/drive"
	"findee/link"
)

const (
	sweepInterval = 50 * time.Millisecond
	maxLogLines   = 80
)

// QuitMsg 外部（如收到 SIGTERM）请求退出，退出前会发送最后一条 stop
type QuitMsg struct{}

type sweepMsg time.Time

type eventMsg struct{ ev link.Event }

// Options 仪表盘依赖：发送端与事件源都是接口，便于脱离终端与网络测试
type Options struct {
	Sender     drive.Sender
	Events     <-chan link.Event
	Throttle   *drive.Throttle
	KeyMap     drive.KeyMap
	HoldDelay  time.Duration
	HoldRepeat time.Duration
	Server     string
	Now        func() time.Time
}

// Model bubbletea 模型；Update 是单线程事件循环，解析器只在这里被调用
type Model struct {
	keymap   drive.KeyMap
	resolver *drive.Resolver
	throttle *drive.Throttle
	hold     *HoldTracker
	events   <-chan link.Event
	now      func() time.Time
	server   string

	lastSpeed int
	connected bool
	robot     *link.RobotStatus
	sys       *link.SystemInfo
	distance  *float64
	lastSeen  time.Time
	log       []logLine
	width     int
	quitting  bool
}

type logLine struct {
	at    time.Time
	level string
	text  string
}

func New(opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.KeyMap == nil {
		opts.KeyMap = drive.ArrowKeyMap
	}
	if opts.Throttle == nil {
		opts.Throttle = drive.NewThrottle(drive.DefaultSpeed, drive.DefaultMinSpeed, drive.DefaultMaxSpeed, drive.DefaultSpeedStep)
	}
	if opts.HoldDelay <= 0 {
		opts.HoldDelay = DefaultHoldDelay
	}
	if opts.HoldRepeat <= 0 {
		opts.HoldRepeat = DefaultHoldRepeat
	}
	m := &Model{
		keymap:    opts.KeyMap,
		resolver:  drive.NewResolver(opts.Sender, opts.Throttle),
		throttle:  opts.Throttle,
		hold:      NewHoldTracker(opts.HoldDelay, opts.HoldRepeat),
		events:    opts.Events,
		now:       opts.Now,
		server:    opts.Server,
		lastSpeed: opts.Throttle.Speed(),
	}
	m.addLog("info", "arrows/WASD: drive  space: stop  +/-: speed  q: quit")
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(sweep(), m.waitEvent())
}

func sweep() tea.Cmd {
	return tea.Tick(sweepInterval, func(t time.Time) tea.Msg { return sweepMsg(t) })
}

func (m *Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{ev}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case sweepMsg:
		m.onSweep()
		if m.quitting {
			return m, nil
		}
		return m, sweep()
	case eventMsg:
		m.apply(msg.ev)
		return m, m.waitEvent()
	case QuitMsg:
		return m.quit()
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := msg.String()
	switch name {
	case "ctrl+c", "q", "esc":
		return m.quit()
	case "+", "=":
		m.setSpeed(m.throttle.Up())
		return m, nil
	case "-", "_":
		m.setSpeed(m.throttle.Down())
		return m, nil
	}

	ev, ok := m.keymap.Event(name, false)
	if !ok {
		return m, nil
	}
	ev.Repeat = m.hold.Press(ev.Key, m.now())
	m.resolver.OnKeyDown(ev)
	return m, nil
}

// onSweep 处理超时松开的键，并跟进外部（管理接口）改动的速度
func (m *Model) onSweep() {
	if keys := m.hold.Expired(m.now()); len(keys) > 0 {
		evs := make([]drive.KeyEvent, 0, len(keys))
		for _, k := range keys {
			evs = append(evs, drive.KeyEvent{Key: k})
		}
		m.resolver.OnKeysUp(evs...)
	}
	if s := m.throttle.Speed(); s != m.lastSpeed {
		m.setSpeed(s)
	}
}

// setSpeed 速度变化时，正在运动则以新速度重发
func (m *Model) setSpeed(s int) {
	if s == m.lastSpeed {
		return
	}
	m.lastSpeed = s
	m.resolver.Refresh()
	m.addLog("info", fmt.Sprintf("speed %d%%", s))
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if !m.quitting {
		m.quitting = true
		m.hold.Reset()
		m.resolver.Release()
		m.addLog("info", "stopping robot")
	}
	return m, tea.Quit
}

func (m *Model) apply(ev link.Event) {
	m.lastSeen = m.now()
	switch ev := ev.(type) {
	case link.ConnState:
		m.connected = ev.Connected
		if ev.Connected {
			m.addLog("system", "socket connected to server")
		} else {
			m.addLog("warning", "socket disconnected from server")
		}
	case link.ConnectionStatus:
		m.connected = ev.Connected
		level := "system"
		if !ev.Connected {
			level = "warning"
		}
		m.addLog(level, ev.Message)
	case link.RobotStatus:
		rs := ev
		m.robot = &rs
		if rs.Speed > 0 {
			// 以服务端的速度为准，不触发重发
			m.lastSpeed = m.throttle.Set(rs.Speed)
		}
		m.addLog("system", fmt.Sprintf("robot status - motor: %s, camera: %s, ultrasonic: %s",
			okMark(rs.MotorStatus), okMark(rs.CameraStatus), okMark(rs.UltrasonicStatus)))
	case link.MotorFeedback:
		if ev.Success {
			m.addLog("command", fmt.Sprintf("motor: %s (%d%%)", ev.Direction, ev.Speed))
		} else {
			m.addLog("error", fmt.Sprintf("motor error: %s", ev.Error))
		}
	case link.DashboardUpdate:
		if ev.SystemInfo != nil && ev.SystemInfo.Error == "" {
			m.sys = ev.SystemInfo
		}
		if ev.RobotStatus != nil {
			m.robot = ev.RobotStatus
		}
	case link.UltrasonicData:
		m.distance = ev.Distance
	case link.Notice:
		m.addLog(ev.Level, ev.Message)
	}
}

func (m *Model) addLog(level, text string) {
	m.log = append(m.log, logLine{at: m.now(), level: level, text: text})
	if n := len(m.log); n > maxLogLines {
		m.log = append(m.log[:0], m.log[n-maxLogLines:]...)
	}
}

func okMark(b bool) string {
	if b {
		return "ok"
	}
	return "off"
}
