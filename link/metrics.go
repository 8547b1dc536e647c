package link

import (
	"sync/atomic"
)

// LinkMetrics 记录链路运行期的关键指标（用于监控与调试）
type LinkMetrics struct {
	CommandsSent    int64 // 已写入发送队列的指令数
	CommandsDropped int64 // 因发送队列满被丢弃的指令数
	NotConnected    int64 // 未连接时被放弃的指令数
	FeedbackOK      int64 // 服务端回执成功
	FeedbackFailed  int64 // 服务端回执失败
	Reconnects      int64 // 重连成功次数（不含首次）
	DecodeErrors    int64 // 入站消息解析失败
	EventsDiscarded int64 // 因事件通道满被丢弃的入站事件
}

func (m *LinkMetrics) IncSent()            { atomic.AddInt64(&m.CommandsSent, 1) }
func (m *LinkMetrics) IncDropped()         { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *LinkMetrics) IncNotConnected()    { atomic.AddInt64(&m.NotConnected, 1) }
func (m *LinkMetrics) IncFeedbackOK()      { atomic.AddInt64(&m.FeedbackOK, 1) }
func (m *LinkMetrics) IncFeedbackFailed()  { atomic.AddInt64(&m.FeedbackFailed, 1) }
func (m *LinkMetrics) IncReconnects()      { atomic.AddInt64(&m.Reconnects, 1) }
func (m *LinkMetrics) IncDecodeErrors()    { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *LinkMetrics) IncEventsDiscarded() { atomic.AddInt64(&m.EventsDiscarded, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *LinkMetrics) Snapshot() map[string]any {
	return map[string]any{
		"commands_sent":    atomic.LoadInt64(&m.CommandsSent),
		"commands_dropped": atomic.LoadInt64(&m.CommandsDropped),
		"not_connected":    atomic.LoadInt64(&m.NotConnected),
		"feedback_ok":      atomic.LoadInt64(&m.FeedbackOK),
		"feedback_failed":  atomic.LoadInt64(&m.FeedbackFailed),
		"reconnects":       atomic.LoadInt64(&m.Reconnects),
		"decode_errors":    atomic.LoadInt64(&m.DecodeErrors),
		"events_discarded": atomic.LoadInt64(&m.EventsDiscarded),
	}
}
