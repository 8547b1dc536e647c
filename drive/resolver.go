package drive

// Sender 指令发送端（外部协作者）：只负责转发，不回报成功与否
type Sender interface {
	Emit(dir Direction, speed int)
}

// SpeedSource 当前速度（百分比），由外部调整
type SpeedSource interface {
	Speed() int
}

// SpeedFunc 适配普通函数为 SpeedSource
type SpeedFunc func() int

func (f SpeedFunc) Speed() int { return f() }

var singleDirection = map[Key]Direction{
	KeyUp:    DirForward,
	KeyDown:  DirBackward,
	KeyLeft:  DirRotateLeft,
	KeyRight: DirRotateRight,
}

// 无对角、且最后按下的键已松开时的兜底顺序
var fallbackOrder = []Key{KeyUp, KeyDown, KeyLeft, KeyRight}

// stop 指令不带速度
const stopSpeed = 0

// Resolver 键盘方向解析器：一个会话一个实例，非并发安全，
// 所有调用须来自同一个事件循环
type Resolver struct {
	pressed map[Key]struct{}
	order   []Key
	active  Direction
	braked  bool // 当前解析结果为 stop 且已发送

	sender Sender
	speed  SpeedSource
}

// NewResolver 创建处于 Idle 状态的解析器
func NewResolver(sender Sender, speed SpeedSource) *Resolver {
	return &Resolver{
		pressed: make(map[Key]struct{}),
		sender:  sender,
		speed:   speed,
	}
}

// OnKeyDown 按下：忽略未知键、自动重复以及已按住的键
func (r *Resolver) OnKeyDown(ev KeyEvent) {
	if ev.Key == KeyNone || ev.Repeat {
		return
	}
	if _, held := r.pressed[ev.Key]; held {
		return
	}
	r.pressed[ev.Key] = struct{}{}
	r.order = append(r.order, ev.Key)
	r.update()
}

// OnKeyUp 松开：未按住的键直接忽略，不产生任何指令
func (r *Resolver) OnKeyUp(ev KeyEvent) {
	if r.remove(ev.Key) {
		r.update()
	}
}

// OnKeysUp 同时松开多个键，只按最终结果更新一次，不经过中间方向
func (r *Resolver) OnKeysUp(evs ...KeyEvent) {
	changed := false
	for _, ev := range evs {
		if r.remove(ev.Key) {
			changed = true
		}
	}
	if changed {
		r.update()
	}
}

func (r *Resolver) remove(k Key) bool {
	if k == KeyNone {
		return false
	}
	if _, held := r.pressed[k]; !held {
		return false
	}
	delete(r.pressed, k)
	kept := r.order[:0]
	for _, o := range r.order {
		if o != k {
			kept = append(kept, o)
		}
	}
	r.order = kept
	return true
}

// Resolve 纯函数：由当前按键集合与按下顺序得出方向，顺序即优先级
func (r *Resolver) Resolve() Direction {
	up := r.held(KeyUp)
	down := r.held(KeyDown)
	left := r.held(KeyLeft)
	right := r.held(KeyRight)

	if r.held(KeyStop) {
		return DirStop
	}

	switch {
	case up && left:
		return DirForwardLeft
	case up && right:
		return DirForwardRight
	case down && left:
		return DirBackwardLeft
	case down && right:
		return DirBackwardRight
	}

	// 最后按下的键仍按住则优先，允许新键覆盖相反方向的旧键
	if n := len(r.order); n > 0 {
		last := r.order[n-1]
		if d, ok := singleDirection[last]; ok && r.held(last) {
			return d
		}
	}

	for _, k := range fallbackOrder {
		if r.held(k) {
			return singleDirection[k]
		}
	}
	return DirNone
}

// update 方向变化时先停再走，绝不在两个运动方向之间直接切换
func (r *Resolver) update() {
	next := r.Resolve()
	if next == DirStop {
		// 进入 stop 时发送一次（Idle 时也发，用于补发断线期间丢失的 stop），
		// 按住 Stop 期间不再重复
		if !r.braked {
			r.sender.Emit(DirStop, stopSpeed)
			r.braked = true
		}
		r.active = DirNone
		return
	}
	r.braked = false
	if next == r.active {
		return
	}
	if r.active != DirNone {
		r.sender.Emit(DirStop, stopSpeed)
		r.active = DirNone
	}
	if next.Moving() {
		r.sender.Emit(next, r.speed.Speed())
		r.active = next
	}
}

// Refresh 以当前速度重发正在生效的方向（调速时使用）
func (r *Resolver) Refresh() {
	if r.active.Moving() {
		r.sender.Emit(r.active, r.speed.Speed())
	}
}

// Release 会话结束：清空全部状态并无条件发送一次 stop
func (r *Resolver) Release() {
	clear(r.pressed)
	r.order = r.order[:0]
	r.active = DirNone
	r.braked = false
	r.sender.Emit(DirStop, stopSpeed)
}

// Active 当前生效的方向，Idle 时为 DirNone
func (r *Resolver) Active() Direction { return r.active }

// Held 按下顺序排列的当前按键（副本）
func (r *Resolver) Held() []Key {
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Resolver) held(k Key) bool {
	_, ok := r.pressed[k]
	return ok
}
