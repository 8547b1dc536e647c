package link

import (
	"encoding/json"
	"net/http"

	"findee/drive"
)

// HandleAdminConfig 速度的读取与更新（热更新，下一条指令生效）
// GET /admin/config           返回当前配置
// POST /admin/config {"speed":70} 更新速度，超出范围会被裁剪
func HandleAdminConfig(th *drive.Throttle) http.HandlerFunc {
	type cfg struct {
		Speed    *int `json:"speed,omitempty"`
		MinSpeed *int `json:"min_speed,omitempty"`
		MaxSpeed *int `json:"max_speed,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			speed := th.Speed()
			lo, hi := th.Bounds()
			writeJSON(w, cfg{Speed: &speed, MinSpeed: &lo, MaxSpeed: &hi})
		case http.MethodPost:
			var body cfg
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if body.Speed == nil {
				http.Error(w, "missing speed", http.StatusBadRequest)
				return
			}
			v := th.Set(*body.Speed)
			writeJSON(w, map[string]any{"ok": true, "speed": v})
			Log.Infof("config updated: speed=%d", v)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics 输出链路运行指标
// GET /metrics
func HandleMetrics(l *Link) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"connected": l.Connected(),
			"metrics":   l.Metrics().Snapshot(),
		}
		if cmd, ok := l.LastCommand(); ok {
			payload["last_command"] = cmd
		}
		writeJSON(w, payload)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
