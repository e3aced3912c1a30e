//go:build linux

package firewall

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// checkFirewall checks Linux firewall status for the specified port.
// Supports: ufw, firewalld, and iptables (in order of preference).
// Returns: firewallEnabled, portAllowed, firewallName, error
func checkFirewall(ctx context.Context, port int) (bool, bool, string, error) {
	if enabled, allowed, err := checkUFW(ctx, port); err == nil {
		return enabled, allowed, "ufw", nil
	}

	if enabled, allowed, err := checkFirewalld(ctx, port); err == nil {
		return enabled, allowed, "firewalld", nil
	}

	if enabled, allowed, err := checkIPTables(ctx, port); err == nil {
		return enabled, allowed, "iptables", nil
	}

	// No firewall detected or unable to check
	return false, true, "none detected", nil
}

// checkUFW checks ufw (Uncomplicated Firewall) status.
func checkUFW(ctx context.Context, port int) (bool, bool, error) {
	cmd := exec.CommandContext(ctx, "ufw", "status")
	output, err := cmd.Output()
	if err != nil {
		return false, false, err
	}

	outputStr := strings.ToLower(string(output))
	if strings.Contains(outputStr, "status: inactive") {
		return false, true, nil
	}
	if !strings.Contains(outputStr, "status: active") {
		return false, true, nil
	}

	// UFW is active, look for a rule that allows the port.
	// Rules look like: "65432/tcp                  ALLOW       Anywhere"
	portStr := strconv.Itoa(port)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, portStr) && strings.Contains(strings.ToUpper(line), "ALLOW") {
			return true, true, nil
		}
	}
	return true, false, nil
}

// checkFirewalld checks firewalld status.
func checkFirewalld(ctx context.Context, port int) (bool, bool, error) {
	cmd := exec.CommandContext(ctx, "firewall-cmd", "--state")
	output, err := cmd.Output()
	if err != nil {
		return false, false, err
	}

	if !strings.Contains(strings.ToLower(string(output)), "running") {
		return false, true, nil
	}

	// firewalld is running, query the port directly. Exit code 0
	// means the port is open.
	portStr := strconv.Itoa(port)
	cmd = exec.CommandContext(ctx, "firewall-cmd", "--query-port="+portStr+"/tcp")
	err = cmd.Run()
	return true, err == nil, nil
}

// checkIPTables checks iptables rules.
func checkIPTables(ctx context.Context, port int) (bool, bool, error) {
	cmd := exec.CommandContext(ctx, "iptables", "-L", "INPUT", "-n")
	output, err := cmd.Output()
	if err != nil {
		// Listing rules needs root; assume nothing is blocking.
		return false, true, err
	}

	outputStr := string(output)
	portStr := strconv.Itoa(port)

	hasRules := false
	for _, line := range strings.Split(outputStr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Chain") || strings.HasPrefix(line, "target") {
			continue
		}
		hasRules = true
		if strings.Contains(line, "ACCEPT") && strings.Contains(line, "dpt:"+portStr) {
			return true, true, nil
		}
	}

	if !hasRules {
		return false, true, nil
	}
	if strings.Contains(outputStr, "policy ACCEPT") {
		return true, true, nil
	}
	return true, false, nil
}
