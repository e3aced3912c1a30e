// Package verify confirms a finished install actually works: the
// published executable exists, carries the executable bit, and is
// reachable through the command lookup path.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pulsemon/provision/internal/sysexec"
)

// Result reports how the published executable checked out. A nil
// Remediation means the executable is fully reachable; otherwise the
// install works but the command is not on PATH.
type Result struct {
	// Path is the canonical installed location.
	Path string
	// OnPath reports whether the executable name resolves via PATH.
	OnPath bool
	// ResolvedTo is where PATH lookup found the name, when it did.
	ResolvedTo string
	// Remediation holds operator instructions when OnPath is false.
	Remediation string
}

// OK reports full success: installed, executable, and on PATH.
func (r *Result) OK() bool {
	return r.OnPath
}

// Verifier checks install results.
type Verifier struct {
	runner sysexec.Runner
	log    zerolog.Logger
}

// NewVerifier creates a verifier.
func NewVerifier(runner sysexec.Runner, log zerolog.Logger) *Verifier {
	return &Verifier{
		runner: runner,
		log:    log.With().Str("component", "verify").Logger(),
	}
}

// Executable checks that binDir/executable exists and is executable,
// then whether the bare name resolves via PATH. A missing or
// non-executable file is an error; a file that works but is not on
// PATH comes back with remediation instructions instead.
func (v *Verifier) Executable(binDir, executable string) (*Result, error) {
	path := filepath.Join(binDir, executable)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("installed executable %s not found", path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not an executable", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("installed file %s is not executable (mode %04o)", path, info.Mode().Perm())
	}

	res := &Result{Path: path}

	resolved, err := v.runner.LookPath(executable)
	if err != nil {
		res.Remediation = fmt.Sprintf("%s is installed at %s but %s is not on your PATH; add it (export PATH=%s:$PATH) or invoke the full path", executable, path, binDir, binDir)
		v.log.Warn().Str("path", path).Msg("executable installed but not on PATH")
		return res, nil
	}

	res.OnPath = true
	res.ResolvedTo = resolved
	if resolved != path {
		// A different file shadows ours on PATH. Still reachable, so
		// not a failure, but worth surfacing.
		v.log.Warn().Str("installed", path).Str("resolved", resolved).Msg("PATH resolves executable to a different location")
	}

	v.log.Debug().Str("path", path).Str("resolved", resolved).Msg("executable verified")
	return res, nil
}

// ServiceActive reports whether the systemd unit is running. A
// systemctl failure reads as not running.
func (v *Verifier) ServiceActive(ctx context.Context, unit string) bool {
	out, err := v.runner.Output(ctx, sysexec.Cmd{Name: "systemctl", Args: []string{"is-active", unit}})
	if err != nil {
		return false
	}
	status := strings.TrimSpace(out)
	return status == "active" || status == "activating"
}
