package drive

import "strings"

// Key 方向键标识（与具体输入设备无关）
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyStop
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyStop:
		return "Stop"
	default:
		return "None"
	}
}

// KeyEvent 边界处的输入事件：只保留键标识与是否为自动重复
type KeyEvent struct {
	Key    Key
	Repeat bool
}

// KeyMap 宿主键名 -> Key 的映射表，每个控制台实例各持一份
type KeyMap map[string]Key

// ArrowKeyMap 方向键 + 空格（浏览器 code 与终端键名都能识别）
var ArrowKeyMap = KeyMap{
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"Space":      KeyStop,

	"up":    KeyUp,
	"down":  KeyDown,
	"left":  KeyLeft,
	"right": KeyRight,
	"space": KeyStop,
	" ":     KeyStop,
}

// WASDKeyMap 在方向键基础上追加 WASD
var WASDKeyMap = ArrowKeyMap.With(KeyMap{
	"KeyW": KeyUp,
	"KeyS": KeyDown,
	"KeyA": KeyLeft,
	"KeyD": KeyRight,

	"w": KeyUp,
	"s": KeyDown,
	"a": KeyLeft,
	"d": KeyRight,
})

// KeyMapByName 按配置名查找映射表
func KeyMapByName(name string) (KeyMap, bool) {
	switch strings.ToLower(name) {
	case "", "arrows":
		return ArrowKeyMap, true
	case "wasd":
		return WASDKeyMap, true
	}
	return nil, false
}

// With 返回合并后的新表，extra 中的同名项覆盖原表
func (m KeyMap) With(extra KeyMap) KeyMap {
	out := make(KeyMap, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Event 将宿主键名转换为 KeyEvent；不认识的键返回 ok=false
func (m KeyMap) Event(name string, repeat bool) (KeyEvent, bool) {
	k, ok := m[name]
	if !ok || k == KeyNone {
		return KeyEvent{}, false
	}
	return KeyEvent{Key: k, Repeat: repeat}, true
}
