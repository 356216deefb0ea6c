//go:build linux

package desktop

import "github.com/louisbranch/hrdesk/internal/services/notifications/presentation"

// notifyCommand builds the notify-send invocation. wait keeps the helper
// running until the alert is clicked or closed.
func notifyCommand(appName string, alert presentation.Alert, wait bool) (string, []string) {
	return "notify-send", notifySendArgs(appName, alert, wait)
}

const supportsClickActions = true

var soundPlayers = [][]string{{"paplay"}, {"pw-play"}, {"aplay", "-q"}}

const opener = "xdg-open"
