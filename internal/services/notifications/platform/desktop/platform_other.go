//go:build !darwin && !linux

package desktop

import "github.com/louisbranch/hrdesk/internal/services/notifications/presentation"

func notifyCommand(string, presentation.Alert, bool) (string, []string) {
	return "", nil
}

const supportsClickActions = false

var soundPlayers [][]string

const opener = ""
