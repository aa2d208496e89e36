package service

// Counters is the snapshot state the alert decision depends on. It is passed
// around explicitly instead of living in hidden mutable cells, so the
// decision is a pure function of (previous snapshot, new snapshot, settings).
type Counters struct {
	Pending int `json:"pending"`
	Unseen  int `json:"unseen"`
}

// ShouldAlert reports whether the dashboard should play an alert for the
// transition from the previous snapshot to the next one: sound is enabled and
// either the pending incident count or the unseen notification count went up.
func ShouldAlert(prev, next Counters, soundEnabled bool) bool {
	if !soundEnabled {
		return false
	}
	return next.Pending > prev.Pending || next.Unseen > prev.Unseen
}
