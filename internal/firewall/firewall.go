// Package firewall inspects the host firewall after the daemon
// service is installed and warns when its listen port looks blocked.
// Everything here is advisory; the install never fails on it.
package firewall

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Advisory summarizes whether the daemon's port is reachable.
type Advisory struct {
	Port            int
	Listening       bool
	FirewallEnabled bool
	PortAllowed     bool
	FirewallName    string
	Message         string
	// Remediation holds the command that would open the port, when
	// one is known for the detected firewall.
	Remediation string
}

// Blocked reports whether the firewall likely blocks the port.
func (a *Advisory) Blocked() bool {
	return a.FirewallEnabled && !a.PortAllowed
}

// Checker probes firewall state for the daemon port.
type Checker struct {
	log zerolog.Logger
}

// NewChecker creates a new firewall checker.
func NewChecker(log zerolog.Logger) *Checker {
	return &Checker{log: log.With().Str("component", "firewall").Logger()}
}

// Advise checks whether the port is listening and whether the host
// firewall allows it. Probe failures degrade to "not detected" rather
// than erroring.
func (c *Checker) Advise(ctx context.Context, port int) *Advisory {
	adv := &Advisory{Port: port}

	adv.Listening = c.isPortListening(port)

	enabled, allowed, name, err := checkFirewall(ctx, port)
	if err != nil {
		c.log.Debug().Err(err).Msg("firewall probe failed")
	}
	adv.FirewallEnabled = enabled
	adv.PortAllowed = allowed
	adv.FirewallName = name

	switch {
	case adv.Blocked():
		adv.Message = fmt.Sprintf("Port %d may be blocked by %s", port, name)
		adv.Remediation = remediationFor(name, port)
	case !adv.Listening:
		adv.Message = fmt.Sprintf("Port %d is not listening yet", port)
	case enabled:
		adv.Message = fmt.Sprintf("Port %d is open in %s", port, name)
	default:
		adv.Message = "Firewall is disabled or not detected"
	}
	return adv
}

// remediationFor returns the open-port command for a known firewall.
func remediationFor(name string, port int) string {
	switch name {
	case "ufw":
		return fmt.Sprintf("ufw allow %d/tcp", port)
	case "firewalld":
		return fmt.Sprintf("firewall-cmd --permanent --add-port=%d/tcp && firewall-cmd --reload", port)
	case "iptables":
		return fmt.Sprintf("iptables -I INPUT -p tcp --dport %d -j ACCEPT", port)
	default:
		return ""
	}
}

// isPortListening checks if a port is currently listening.
func (c *Checker) isPortListening(port int) bool {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
