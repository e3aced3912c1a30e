package prompt

import (
	"os/user"
	"strings"
	"testing"
)

func TestResolveUsername(t *testing.T) {
	exists := func(name string) bool {
		return name == "monitor" || name == "root"
	}

	tests := []struct {
		name        string
		input       string
		defaultUser string
		want        string
		wantErr     string
	}{
		{name: "explicit user", input: "monitor", defaultUser: "root", want: "monitor"},
		{name: "empty takes default", input: "", defaultUser: "monitor", want: "monitor"},
		{name: "whitespace takes default", input: "   ", defaultUser: "root", want: "root"},
		{name: "trimmed", input: "  monitor  ", defaultUser: "", want: "monitor"},
		{name: "no input no default", input: "", defaultUser: "", wantErr: "username is required"},
		{name: "unknown user", input: "nobody-here", defaultUser: "root", wantErr: "does not exist"},
		{name: "unknown default", input: "", defaultUser: "ghost", wantErr: "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveUsername(tt.input, tt.defaultUser, exists)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("resolveUsername(%q) = %q, want error", tt.input, got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveUsername(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("resolveUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUserExistsCurrentUser(t *testing.T) {
	u, err := user.Current()
	if err != nil {
		t.Skipf("cannot resolve current user: %v", err)
	}
	if !UserExists(u.Username) {
		t.Errorf("UserExists(%q) = false for the current user", u.Username)
	}
}

func TestUserExistsUnknown(t *testing.T) {
	if UserExists("pulsemon-no-such-user-xyz") {
		t.Error("UserExists() = true for a made-up account")
	}
}

func TestCurrentUsername(t *testing.T) {
	if CurrentUsername() == "" {
		t.Skip("current user unresolvable in this environment")
	}
}
