// Package probe implements the two liveness checks spec.md §4.8/§4.9
// deliberately keep distinct: a system ICMP ping used by the liveness
// engine, and a fast TCP port-knock used by suspicion responders
// (ICMP is avoided there because it is unreliable against loopback
// targets in local testing, per spec.md §9).
package probe

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"time"
)

// ICMPPing shells out to the system ping binary for one probe with a
// 1s timeout, exactly matching original_source/peer.py's system_ping
// helper — portable across platforms without requiring raw-socket
// privileges that golang.org/x/net/icmp would need.
func ICMPPing(host string) bool {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("ping", "-n", "1", "-w", "1000", host)
	} else {
		cmd = exec.Command("ping", "-c", "1", "-W", "1", host)
	}
	if err := cmd.Run(); err != nil {
		return false
	}
	return true
}

// TCPKnock attempts a plain TCP connect with a 1s timeout and reports
// whether the suspect is reachable. Used only by SUSPECT_REQUEST
// handling, never by the liveness engine.
func TCPKnock(ip string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", ip, port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
