package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDirHonoursEnv(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if want := filepath.Join(base, "adw"); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("ConfigDir() did not create %q", dir)
	}
}

func TestAgentsDirUnderState(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_STATE_HOME", base)

	dir, err := AgentsDir()
	if err != nil {
		t.Fatalf("AgentsDir() error = %v", err)
	}
	if want := filepath.Join(base, "adw", "agents"); dir != want {
		t.Errorf("AgentsDir() = %q, want %q", dir, want)
	}
}
