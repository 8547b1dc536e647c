package drive

import "sync/atomic"

const (
	DefaultSpeed     = 60
	DefaultMinSpeed  = 20
	DefaultMaxSpeed  = 100
	DefaultSpeedStep = 5
)

// Throttle 速度设定（百分比），UI 与管理接口可并发读写
type Throttle struct {
	v    atomic.Int64
	min  int
	max  int
	step int
}

// NewThrottle 初始值会被裁剪到 [min, max]
func NewThrottle(initial, min, max, step int) *Throttle {
	if min > max {
		min, max = max, min
	}
	t := &Throttle{min: min, max: max, step: step}
	t.v.Store(int64(t.clamp(initial)))
	return t
}

func (t *Throttle) Speed() int { return int(t.v.Load()) }

// Set 设置速度并返回裁剪后的实际值
func (t *Throttle) Set(v int) int {
	v = t.clamp(v)
	t.v.Store(int64(v))
	return v
}

// Up / Down 按步长调整
func (t *Throttle) Up() int   { return t.Adjust(t.step) }
func (t *Throttle) Down() int { return t.Adjust(-t.step) }

// Adjust 相对调整，CAS 循环保证并发调整不丢失
func (t *Throttle) Adjust(delta int) int {
	for {
		cur := t.v.Load()
		next := int64(t.clamp(int(cur) + delta))
		if t.v.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}

// Bounds 返回 [min, max]
func (t *Throttle) Bounds() (int, int) { return t.min, t.max }

func (t *Throttle) clamp(v int) int {
	if v < t.min {
		return t.min
	}
	if v > t.max {
		return t.max
	}
	return v
}
