//go:build darwin

package desktop

import "github.com/louisbranch/hrdesk/internal/services/notifications/presentation"

// notifyCommand builds the osascript invocation. Notification Center offers
// no tag or click callback to scripts, so wait is ignored.
func notifyCommand(_ string, alert presentation.Alert, _ bool) (string, []string) {
	return "osascript", []string{"-e", appleScript(alert)}
}

const supportsClickActions = false

var soundPlayers = [][]string{{"afplay"}}

const opener = "open"
