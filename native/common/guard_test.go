package common

import (
	"errors"
	"testing"
)

type pausedModules map[string]bool

func (p pausedModules) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, ModuleBadge); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	paused := pausedModules{ModuleBadge: true}
	if err := Guard(paused, ModuleBadge); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(paused, "donation"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	if err := Guard(paused, ""); err != nil {
		t.Fatalf("empty module must pass: %v", err)
	}
}
