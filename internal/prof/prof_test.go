package prof

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCPUProfileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.out")
	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU: %v", err)
	}
	if err := StartCPU(path); !errors.Is(err, ErrActive) {
		t.Fatalf("second StartCPU = %v, want ErrActive", err)
	}
	StopCPU()
	StopCPU()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("profile not written: %v", err)
	}
}

func TestWriteMem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.out")
	if err := WriteMem(path); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	if err := WriteMem(filepath.Join(t.TempDir(), "missing", "mem.out")); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}
