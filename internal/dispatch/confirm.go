package dispatch

import (
	"time"

	"github.com/PanelPilot/PanelPilot/internal/panel"
	"github.com/PanelPilot/PanelPilot/internal/session"
)

// DefaultConfirmWindow is how long a destructive action waits for its
// repeat press.
const DefaultConfirmWindow = 5 * time.Second

func destructive(action string) bool {
	return action == panel.ActionStop || action == panel.ActionTerminate
}

// confirmDestructive applies the timed double-press rule. The first press on
// an (instance, action) pair records a pending confirmation and returns
// false; a second press on the same pair within the window clears it and
// returns true. Any mismatch or an expired window counts as a fresh first
// press.
func (d *Dispatcher) confirmDestructive(sess *session.Session, action, instanceID string) bool {
	now := d.now()
	pc := sess.PendingConfirm
	if pc != nil &&
		pc.Action == action &&
		pc.InstanceID == instanceID &&
		now.Sub(pc.IssuedAt) <= d.confirmWindow {
		sess.PendingConfirm = nil
		return true
	}
	sess.PendingConfirm = &session.PendingConfirmation{
		Action:     action,
		InstanceID: instanceID,
		IssuedAt:   now,
	}
	return false
}
