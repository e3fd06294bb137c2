package main

import (
	"testing"

	"github.com/ole-kvern/buoysim/internal/config"
	"github.com/ole-kvern/buoysim/internal/engine"
)

func TestCollectRunHonorsStride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sim.SnapshotStride = 5

	eng, err := engine.New(cfg, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	snaps := collectRun(eng, 10, cfg.Sim.Dt)
	if len(snaps) != 2 {
		t.Fatalf("collected %d snapshots over 10 ticks at stride 5, want 2", len(snaps))
	}
	if snaps[0].Tick != 5 || snaps[1].Tick != 10 {
		t.Errorf("collected ticks %d, %d, want 5, 10", snaps[0].Tick, snaps[1].Tick)
	}
}

func TestCollectRunStrideOne(t *testing.T) {
	eng, err := engine.New(config.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	snaps := collectRun(eng, 20, 0.01)
	if len(snaps) != 20 {
		t.Fatalf("collected %d snapshots over 20 ticks at stride 1, want 20", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Tick == snaps[i-1].Tick {
			t.Fatalf("duplicate tick %d at index %d", snaps[i].Tick, i)
		}
	}
}
