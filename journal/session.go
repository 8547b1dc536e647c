package journal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"findee/link"
)

// Session 某次控制台运行的记录端，实现 link.Recorder
type Session struct {
	j  *Journal
	id string
}

var _ link.Recorder = (*Session)(nil)

// NewSession 以新的 UUID 开启一个会话
func (j *Journal) NewSession() *Session {
	return &Session{j: j, id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) RecordCommand(cmd link.MotorCommand) {
	s.j.Record(Entry{
		Session:   s.id,
		Kind:      KindCommand,
		Direction: string(cmd.Direction),
		Speed:     cmd.Speed,
		Success:   true,
		At:        time.UnixMilli(cmd.Timestamp),
	})
}

func (s *Session) RecordFeedback(fb link.MotorFeedback) {
	s.j.Record(Entry{
		Session:   s.id,
		Kind:      KindFeedback,
		Direction: fb.Direction,
		Speed:     fb.Speed,
		Success:   fb.Success,
		Error:     fb.Error,
	})
}

// Handler GET /journal?limit=50
func (j *Journal) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 1000 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries, err := j.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
	}
}
