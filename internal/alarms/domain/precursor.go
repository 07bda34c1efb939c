package alarms

import (
	"time"

	asrslog "asrs-monitor/internal/asrslog/domain"
)

// PrecursorEvent is the last normal record on a line before an alarm.
// It is derived on every correlation run and never persisted.
type PrecursorEvent struct {
	asrslog.NormalizedRecord
	AlarmStatus     int64
	AlarmAt         time.Time
	DurationSeconds int64
}

// NewPrecursorEvent pairs a prior normal record with the alarm that followed it.
// The duration is truncated to whole seconds.
func NewPrecursorEvent(prior, alarm asrslog.NormalizedRecord) PrecursorEvent {
	status, _ := alarm.StatusValue()
	return PrecursorEvent{
		NormalizedRecord: prior,
		AlarmStatus:      status,
		AlarmAt:          alarm.Timestamp,
		DurationSeconds:  int64(alarm.Timestamp.Sub(prior.Timestamp) / time.Second),
	}
}
