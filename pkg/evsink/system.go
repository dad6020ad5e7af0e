// system.go captures host details stored alongside each document.

package evsink

import "os"

func hostName() string {
	hostname, _ := os.Hostname() // Ignore error, empty hostname is acceptable
	return hostname
}
