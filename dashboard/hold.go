package dashboard

import (
	"sort"
	"time"

	"findee/drive"
)

// 终端自动重复的默认节奏：首次重复前的等待（X11 默认 660ms）与重复间隔
const (
	DefaultHoldDelay  = 750 * time.Millisecond
	DefaultHoldRepeat = 250 * time.Millisecond
)

// HoldTracker 终端不上报按键松开：首次按下记为 down，之后的按下视为自动
// 重复并刷新期限，超过期限未再收到即视为松开。
//
// 终端只重复最后按下的键，先按住的键会被“挤掉”而不再收到重复。
// 因此只要有更晚上报的键仍在保持，过期的旧键继续视为按住，
// 直到该键也过期时一起松开。
type HoldTracker struct {
	delay  time.Duration
	repeat time.Duration
	keys   map[drive.Key]holdState
	seq    uint64
}

type holdState struct {
	deadline time.Time
	seq      uint64 // 最近一次上报的顺序
}

// NewHoldTracker delay 为首次按下后的宽限，repeat 为两次自动重复之间允许的最长间隔
func NewHoldTracker(delay, repeat time.Duration) *HoldTracker {
	return &HoldTracker{
		delay:  delay,
		repeat: repeat,
		keys:   make(map[drive.Key]holdState),
	}
}

// Press 记录一次按下，返回是否为自动重复
func (h *HoldTracker) Press(k drive.Key, now time.Time) bool {
	_, held := h.keys[k]
	wait := h.delay
	if held {
		wait = h.repeat
	}
	h.seq++
	h.keys[k] = holdState{deadline: now.Add(wait), seq: h.seq}
	return held
}

// Expired 取出已超时且未被更晚按键挤掉的键（按 Key 排序，保证松开顺序确定）
func (h *HoldTracker) Expired(now time.Time) []drive.Key {
	var newest uint64
	for _, s := range h.keys {
		if now.Before(s.deadline) && s.seq > newest {
			newest = s.seq
		}
	}
	var out []drive.Key
	for k, s := range h.keys {
		if !now.Before(s.deadline) && s.seq > newest {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	for _, k := range out {
		delete(h.keys, k)
	}
	return out
}

func (h *HoldTracker) Reset() {
	clear(h.keys)
}
