package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"findee/drive"
	"findee/link"
)

type sent struct {
	dir   drive.Direction
	speed int
}

type fakeSender struct{ got []sent }

func (f *fakeSender) Emit(dir drive.Direction, speed int) {
	f.got = append(f.got, sent{dir, speed})
}

func (f *fakeSender) dirs() []drive.Direction {
	out := make([]drive.Direction, 0, len(f.got))
	for _, s := range f.got {
		out = append(out, s.dir)
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModel(t *testing.T) (*Model, *fakeSender, *clock, *drive.Throttle) {
	t.Helper()
	s := &fakeSender{}
	c := &clock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	th := drive.NewThrottle(60, 20, 100, 5)
	m := New(Options{
		Sender:     s,
		Throttle:   th,
		KeyMap:     drive.WASDKeyMap,
		HoldDelay:  750 * time.Millisecond,
		HoldRepeat: 250 * time.Millisecond,
		Now:        c.now,
	})
	return m, s, c, th
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// autorepeat 模拟终端自动重复：自当前时刻起，first 之后每隔 every 上报一次 msg，
// 直到 until；期间按 sweepInterval 清扫
func autorepeat(m *Model, c *clock, msg tea.KeyMsg, first, every, until time.Duration) {
	start := c.now()
	for el := 10 * time.Millisecond; el <= until; el += 10 * time.Millisecond {
		c.t = start.Add(el)
		if el >= first && (el-first)%every == 0 {
			m.Update(msg)
		}
		if el%sweepInterval == 0 {
			m.Update(sweepMsg(c.now()))
		}
	}
}

func TestArrowHoldAndRelease(t *testing.T) {
	m, s, c, _ := newTestModel(t)

	m.Update(key(tea.KeyUp))
	require.Equal(t, []drive.Direction{drive.DirForward}, s.dirs())

	// 终端自动重复：不重发
	c.advance(100 * time.Millisecond)
	m.Update(key(tea.KeyUp))
	c.advance(200 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Len(t, s.got, 1)

	// 超过重复间隔：视为松开
	c.advance(300 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop}, s.dirs())
	require.Equal(t, drive.DirNone, m.resolver.Active())
}

func TestTapReleasesAfterInitialDelay(t *testing.T) {
	m, s, c, _ := newTestModel(t)
	m.Update(key(tea.KeyDown))

	// 首次重复之前的宽限期内仍视为按住
	c.advance(700 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []drive.Direction{drive.DirBackward}, s.dirs())

	c.advance(50 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []drive.Direction{drive.DirBackward, drive.DirStop}, s.dirs())
}

func TestSteadyHoldSurvivesAutorepeatDelay(t *testing.T) {
	m, s, c, _ := newTestModel(t)
	m.Update(key(tea.KeyUp))

	// X11 默认节奏：660ms 后开始，每 40ms 重复，共按住 1s
	autorepeat(m, c, key(tea.KeyUp), 660*time.Millisecond, 40*time.Millisecond, time.Second)
	require.Equal(t, []drive.Direction{drive.DirForward}, s.dirs())

	c.advance(300 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop}, s.dirs())
}

func TestDiagonalHeldWhileOnlyLastKeyRepeats(t *testing.T) {
	m, s, c, _ := newTestModel(t)
	m.Update(key(tea.KeyUp))
	c.advance(100 * time.Millisecond)
	m.Update(key(tea.KeyLeft))

	// 终端只重复 Left，Up 不再上报但仍按住
	autorepeat(m, c, key(tea.KeyLeft), 660*time.Millisecond, 40*time.Millisecond, 1500*time.Millisecond)
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop, drive.DirForwardLeft}, s.dirs())
	require.Equal(t, drive.DirForwardLeft, m.resolver.Active())
	require.Equal(t, []drive.Key{drive.KeyUp, drive.KeyLeft}, m.resolver.Held())

	// 重复停止后两个键一起松开，只发一次 stop
	c.advance(300 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop, drive.DirForwardLeft, drive.DirStop}, s.dirs())
	require.Empty(t, m.resolver.Held())
}

func TestDiagonalWithWASD(t *testing.T) {
	m, s, _, _ := newTestModel(t)
	m.Update(runes("w"))
	m.Update(runes("d"))
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop, drive.DirForwardRight}, s.dirs())
}

func TestSpaceStops(t *testing.T) {
	m, s, _, _ := newTestModel(t)
	m.Update(key(tea.KeyDown))
	m.Update(runes(" "))
	require.Equal(t, []drive.Direction{drive.DirBackward, drive.DirStop}, s.dirs())
	require.Equal(t, drive.DirNone, m.resolver.Active())
}

func TestUnmappedKeysIgnored(t *testing.T) {
	m, s, _, _ := newTestModel(t)
	m.Update(runes("x"))
	m.Update(key(tea.KeyEnter))
	require.Empty(t, s.got)
}

func TestSpeedKeysRefreshWhileMoving(t *testing.T) {
	m, s, _, th := newTestModel(t)

	m.Update(runes("+"))
	require.Equal(t, 65, th.Speed())
	require.Empty(t, s.got)

	m.Update(key(tea.KeyLeft))
	m.Update(runes("-"))
	m.Update(runes("-"))
	require.Equal(t, 55, th.Speed())
	require.Equal(t, []sent{
		{drive.DirRotateLeft, 65},
		{drive.DirRotateLeft, 60},
		{drive.DirRotateLeft, 55},
	}, s.got)
}

func TestExternalSpeedChangeRefreshesOnSweep(t *testing.T) {
	m, s, c, th := newTestModel(t)
	m.Update(key(tea.KeyRight))
	th.Set(90)

	c.advance(10 * time.Millisecond)
	m.Update(sweepMsg(c.now()))
	require.Equal(t, []sent{
		{drive.DirRotateRight, 60},
		{drive.DirRotateRight, 90},
	}, s.got)

	// 速度不变时不重发
	m.Update(sweepMsg(c.now()))
	require.Len(t, s.got, 2)
}

func TestQuitReleases(t *testing.T) {
	m, s, _, _ := newTestModel(t)
	m.Update(key(tea.KeyUp))

	_, cmd := m.Update(QuitMsg{})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Equal(t, []drive.Direction{drive.DirForward, drive.DirStop}, s.dirs())

	// 重复退出不再发送
	m.Update(key(tea.KeyCtrlC))
	require.Len(t, s.got, 2)
	require.Contains(t, m.View(), "stopping")
}

func TestEventsUpdateState(t *testing.T) {
	m, _, _, th := newTestModel(t)

	m.Update(eventMsg{link.ConnState{Connected: true}})
	require.True(t, m.connected)

	m.Update(eventMsg{link.RobotStatus{MotorStatus: true, CameraStatus: true, CameraFPS: 24, Speed: 70}})
	require.Equal(t, 70, th.Speed())
	require.Equal(t, 24, m.robot.CameraFPS)

	dist := 31.5
	m.Update(eventMsg{link.UltrasonicData{Distance: &dist}})
	require.InDelta(t, 31.5, *m.distance, 0.001)

	m.Update(eventMsg{link.DashboardUpdate{
		SystemInfo:  &link.SystemInfo{Hostname: "findee", CPUPercent: 12},
		RobotStatus: &link.RobotStatus{MotorStatus: false},
	}})
	require.Equal(t, "findee", m.sys.Hostname)
	require.False(t, m.robot.MotorStatus)

	m.Update(eventMsg{link.MotorFeedback{Success: false, Error: "Robot motor not available"}})
	require.Equal(t, "error", m.log[len(m.log)-1].level)

	m.Update(eventMsg{link.Notice{Level: "warning", Message: "robot not connected"}})
	require.Equal(t, "robot not connected", m.log[len(m.log)-1].text)

	view := m.View()
	require.Contains(t, view, "Connected")
	require.Contains(t, view, "31.5 cm")
	require.Contains(t, view, "findee")
}

func TestEventDeliveryCommand(t *testing.T) {
	ch := make(chan link.Event, 1)
	m := New(Options{Sender: &fakeSender{}, Events: ch})
	ch <- link.ConnState{Connected: true}

	msg := m.waitEvent()()
	_, cmd := m.Update(msg)
	require.True(t, m.connected)
	require.NotNil(t, cmd)
}

func TestLogIsCapped(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	for i := 0; i < 200; i++ {
		m.addLog("info", "line")
	}
	require.Len(t, m.log, maxLogLines)
}

func TestHoldTrackerExpiredOrder(t *testing.T) {
	h := NewHoldTracker(100*time.Millisecond, 50*time.Millisecond)
	t0 := time.Unix(0, 0)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	require.False(t, h.Press(drive.KeyRight, at(0)))
	require.False(t, h.Press(drive.KeyUp, at(10)))
	require.True(t, h.Press(drive.KeyUp, at(60)))

	// Right 已过期，但被仍在重复的 Up 挤掉，保持按住
	require.Empty(t, h.Expired(at(100)))
	require.Equal(t, []drive.Key{drive.KeyUp, drive.KeyRight}, h.Expired(at(110)))

	// 最近上报的键过期时单独松开，较早的键按自己的期限
	h.Press(drive.KeyStop, at(200))
	h.Press(drive.KeyLeft, at(210))
	h.Press(drive.KeyStop, at(220))
	require.Equal(t, []drive.Key{drive.KeyStop}, h.Expired(at(270)))
	require.Equal(t, []drive.Key{drive.KeyLeft}, h.Expired(at(310)))

	h.Press(drive.KeyStop, t0)
	h.Reset()
	require.Empty(t, h.Expired(t0.Add(time.Hour)))
	require.False(t, h.Press(drive.KeyStop, t0))
}
