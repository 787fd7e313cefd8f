package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildTarget(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		creds   Credentials
		want    string
		wantErr bool
	}{
		{
			name:  "full route",
			base:  "ws://localhost:8000/ws",
			creds: Credentials{ClientType: ClientAdmin, ClientID: "admin-1", Token: "abc.def"},
			want:  "ws://localhost:8000/ws/admin/admin-1?token=abc.def",
		},
		{
			name:  "trailing slash",
			base:  "wss://proctor.example.com/ws/",
			creds: Credentials{ClientType: ClientProctor, ClientID: "p-9", Token: "t"},
			want:  "wss://proctor.example.com/ws/proctor/p-9?token=t",
		},
		{
			name:  "no token",
			base:  "ws://localhost:8000/ws",
			creds: Credentials{ClientType: ClientStudent, ClientID: "s-1"},
			want:  "ws://localhost:8000/ws/student/s-1",
		},
		{
			name:  "token only",
			base:  "ws://localhost:8000/ws?lang=en",
			creds: Credentials{Token: "a b&c"},
			want:  "ws://localhost:8000/ws?lang=en&token=a+b%26c",
		},
		{
			name:    "http scheme rejected",
			base:    "http://localhost:8000/ws",
			wantErr: true,
		},
		{
			name:    "unparseable",
			base:    "ws://[::1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTarget(tt.base, tt.creds)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildTarget() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildTarget() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	got := Redact("ws://localhost:8000/ws/admin/a1?token=secret")
	if strings.Contains(got, "secret") {
		t.Errorf("Redact leaked token: %s", got)
	}
	if !strings.Contains(got, "token=REDACTED") {
		t.Errorf("Redact = %s, want masked token", got)
	}

	plain := "ws://localhost:8000/ws"
	if got := Redact(plain); got != plain {
		t.Errorf("Redact(%q) = %q", plain, got)
	}
}

func TestLoadToken(t *testing.T) {
	t.Run("inline wins", func(t *testing.T) {
		got, err := LoadToken("inline", "/does/not/exist")
		if err != nil || got != "inline" {
			t.Errorf("LoadToken = %q, %v", got, err)
		}
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("  file-token\n"), 0600); err != nil {
			t.Fatalf("write token: %v", err)
		}
		got, err := LoadToken("", path)
		if err != nil || got != "file-token" {
			t.Errorf("LoadToken = %q, %v", got, err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		os.WriteFile(path, []byte("\n"), 0600)
		if _, err := LoadToken("", path); err == nil {
			t.Error("expected error for empty token file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadToken("", filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		if _, err := LoadToken("", ""); !errors.Is(err, ErrNoToken) {
			t.Errorf("err = %v, want ErrNoToken", err)
		}
	})
}

func TestValidClientType(t *testing.T) {
	for _, ct := range []string{ClientAdmin, ClientStudent, ClientProctor} {
		if !ValidClientType(ct) {
			t.Errorf("ValidClientType(%q) = false", ct)
		}
	}
	if ValidClientType("guest") {
		t.Error("ValidClientType(guest) = true")
	}
}
