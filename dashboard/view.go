package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"findee/drive"
)

const visibleLogLines = 12

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#585b70")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	cmdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5"))
	moveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fab387"))
)

func (m *Model) View() string {
	if m.quitting {
		return "stopping robot...\n"
	}

	status := errStyle.Render("Disconnected")
	if m.connected {
		status = okStyle.Render("Connected")
	}
	header := titleStyle.Render("Findee") + "  " + status + "  " + labelStyle.Render(m.server)

	left := panelStyle.Render(strings.Join([]string{
		m.driveLines(),
		"",
		m.robotLines(),
	}, "\n"))
	right := panelStyle.Render(m.logLines())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	) + "\n"
}

func (m *Model) driveLines() string {
	dir := m.resolver.Active()
	dirText := labelStyle.Render("idle")
	if dir != drive.DirNone {
		dirText = moveStyle.Render(dir.String())
	}
	held := make([]string, 0, 4)
	for _, k := range m.resolver.Held() {
		held = append(held, k.String())
	}
	heldText := "-"
	if len(held) > 0 {
		heldText = strings.Join(held, " ")
	}
	lo, hi := m.throttle.Bounds()
	return strings.Join([]string{
		row("direction", dirText),
		row("speed", fmt.Sprintf("%d%% %s", m.throttle.Speed(), speedBar(m.throttle.Speed(), lo, hi))),
		row("keys", heldText),
	}, "\n")
}

func (m *Model) robotLines() string {
	lines := []string{}
	if m.robot != nil {
		lines = append(lines,
			row("motor", mark(m.robot.MotorStatus)),
			row("camera", mark(m.robot.CameraStatus)),
			row("ultrasonic", mark(m.robot.UltrasonicStatus)),
		)
		if m.robot.CameraStatus {
			lines = append(lines, row("fps", fmt.Sprintf("%d", m.robot.CameraFPS)))
		} else {
			lines = append(lines, row("fps", "N/A"))
		}
	} else {
		lines = append(lines, row("robot", labelStyle.Render("unknown")))
	}
	if m.sys != nil {
		host := m.sys.Hostname
		if host == "" {
			host = "--"
		}
		lines = append(lines,
			row("host", host),
			row("cpu", fmt.Sprintf("%.1f%% / %.1f°C", m.sys.CPUPercent, m.sys.CPUTemperature)),
		)
	}
	if m.distance != nil {
		lines = append(lines, row("distance", fmt.Sprintf("%.1f cm", *m.distance)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) logLines() string {
	start := 0
	if len(m.log) > visibleLogLines {
		start = len(m.log) - visibleLogLines
	}
	out := make([]string, 0, visibleLogLines)
	for _, l := range m.log[start:] {
		ts := labelStyle.Render("[" + l.at.Format("15:04:05") + "]")
		out = append(out, ts+" "+levelStyle(l.level).Render(l.text))
	}
	return strings.Join(out, "\n")
}

func levelStyle(level string) lipgloss.Style {
	switch level {
	case "error":
		return errStyle
	case "warning":
		return warnStyle
	case "command":
		return cmdStyle
	default:
		return lipgloss.NewStyle()
	}
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value
}

func mark(b bool) string {
	if b {
		return okStyle.Render("ok")
	}
	return errStyle.Render("off")
}

func speedBar(v, lo, hi int) string {
	const width = 10
	if hi <= lo {
		return ""
	}
	n := (v - lo) * width / (hi - lo)
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", width-n) + "]"
}
