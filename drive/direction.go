package drive

import "fmt"

// Direction 发往机器人的运动指令（线上格式即字符串本身）
type Direction string

const (
	DirNone          Direction = ""
	DirStop          Direction = "stop"
	DirForward       Direction = "forward"
	DirBackward      Direction = "backward"
	DirLeft          Direction = "left"
	DirRight         Direction = "right"
	DirRotateLeft    Direction = "rotate-left"
	DirRotateRight   Direction = "rotate-right"
	DirForwardLeft   Direction = "forward-left"
	DirForwardRight  Direction = "forward-right"
	DirBackwardLeft  Direction = "backward-left"
	DirBackwardRight Direction = "backward-right"
)

// Directions 全部十一种指令
var Directions = []Direction{
	DirStop,
	DirForward, DirBackward,
	DirLeft, DirRight,
	DirRotateLeft, DirRotateRight,
	DirForwardLeft, DirForwardRight,
	DirBackwardLeft, DirBackwardRight,
}

// ParseDirection 校验线上字符串
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if string(d) == s {
			return d, nil
		}
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}

// Moving 是否为非停止的运动指令
func (d Direction) Moving() bool {
	return d != DirNone && d != DirStop
}

func (d Direction) String() string {
	if d == DirNone {
		return "none"
	}
	return string(d)
}
