package link

import (
	"encoding/json"
	"fmt"
	"time"

	"findee/drive"
)

// 与机器人服务端约定的事件名
const (
	EventMotorControl     = "motor_control"
	EventConnectionStatus = "connection_status"
	EventRobotStatus      = "robot_status"
	EventMotorFeedback    = "motor_feedback"
	EventDashboardUpdate  = "dashboard_update"
	EventUltrasonicData   = "ultrasonic_data"
)

// Envelope WebSocket 文本消息的外层结构
// 示例：{"event":"motor_control","data":{"direction":"forward","speed":60}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MotorCommand 出站运动指令
type MotorCommand struct {
	Direction drive.Direction `json:"direction"`
	Speed     int             `json:"speed"`
	Timestamp int64           `json:"timestamp"` // Unix ms
}

// ConnectionStatus 服务端连接确认
type ConnectionStatus struct {
	Connected   bool   `json:"connected"`
	Message     string `json:"message"`
	RobotStatus bool   `json:"robot_status"`
}

// RobotStatus 机器人各部件状态
type RobotStatus struct {
	Connected        bool   `json:"connected"`
	Running          bool   `json:"running"`
	MotorStatus      bool   `json:"motor_status"`
	CameraStatus     bool   `json:"camera_status"`
	UltrasonicStatus bool   `json:"ultrasonic_status"`
	CameraFPS        int    `json:"camera_fps"`
	Speed            int    `json:"speed,omitempty"`
	Direction        string `json:"direction,omitempty"`
}

// MotorFeedback 服务端执行指令后的回执
type MotorFeedback struct {
	Success   bool   `json:"success"`
	Direction string `json:"direction,omitempty"`
	Speed     int    `json:"speed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SystemInfo 机器人主机信息
type SystemInfo struct {
	Hostname       string  `json:"hostname,omitempty"`
	CPUPercent     float64 `json:"cpu_percent,omitempty"`
	CPUTemperature float64 `json:"cpu_temperature,omitempty"`
	MemoryPercent  float64 `json:"memory_percent,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// DashboardUpdate 服务端周期性推送
type DashboardUpdate struct {
	SystemInfo  *SystemInfo  `json:"system_info,omitempty"`
	RobotStatus *RobotStatus `json:"robot_status,omitempty"`
	Timestamp   float64      `json:"timestamp"` // Unix 秒
}

// UltrasonicData 超声波测距推送
type UltrasonicData struct {
	Distance  *float64 `json:"distance"` // 测量失败时为 null
	Timestamp float64  `json:"timestamp"`
}

// Notice 本地产生的提示（非服务端消息），例如连接断开、未连接时发送
type Notice struct {
	Level   string // info | warning | error
	Message string
}

// ConnState 连接状态变化
type ConnState struct {
	Connected bool
}

// Event 交给仪表盘的入站事件：上面任一类型的值
type Event any

func newCommandEnvelope(dir drive.Direction, speed int, now time.Time) ([]byte, error) {
	data, err := json.Marshal(MotorCommand{Direction: dir, Speed: speed, Timestamp: now.UnixMilli()})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventMotorControl, Data: data})
}

// decodeEnvelope 解析入站消息；未知事件返回 nil, nil
func decodeEnvelope(payload []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		v   Event
		err error
	)
	switch env.Event {
	case EventConnectionStatus:
		v, err = decodeAs[ConnectionStatus](env.Data)
	case EventRobotStatus:
		v, err = decodeAs[RobotStatus](env.Data)
	case EventMotorFeedback:
		v, err = decodeAs[MotorFeedback](env.Data)
	case EventDashboardUpdate:
		v, err = decodeAs[DashboardUpdate](env.Data)
	case EventUltrasonicData:
		v, err = decodeAs[UltrasonicData](env.Data)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Event, err)
	}
	return v, nil
}

func decodeAs[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}
