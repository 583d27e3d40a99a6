package projection

import (
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
)

// TimestampedView is one status entry.
type TimestampedView struct {
	Timestamp time.Time `json:"Timestamp"`
	Value     string    `json:"Value"`
}

// RenderSchedule renders the current entry, or the newest-first history when
// the query asks for more than one entry or sets since.
func RenderSchedule[T ~string](s *network.Schedule[T], q Query) any {
	if !q.Historized() {
		c := s.Current()
		return TimestampedView{Timestamp: c.Timestamp, Value: string(c.Value)}
	}
	history := s.History(q.HistorySize, q.Since)
	out := make([]TimestampedView, 0, len(history))
	for _, e := range history {
		out = append(out, TimestampedView{Timestamp: e.Timestamp, Value: string(e.Value)})
	}
	return out
}
