package engine

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/ole-kvern/buoysim/internal/metrics"
	"github.com/ole-kvern/buoysim/internal/pneumatics"
)

// FloaterState is the published view of one floater.
type FloaterState struct {
	ID           int
	LoopPosition float64
	Direction    float64
	FillFraction float64
	Valve        string
}

// Diagnostics carries the non-fatal condition counters. Recovered faults
// surface here instead of stopping the loop.
type Diagnostics struct {
	SkippedTicks        uint64
	SchedulingConflicts uint64
	Injections          uint64
	Vents               uint64
	OverloadActive      bool
	OverloadCount       uint64
}

// Snapshot is the immutable state copy published after a tick. Consumers
// (transport, loggers, the live view) read it without touching engine
// state.
type Snapshot struct {
	RunID string
	Tick  uint64
	Time  float64
	Dt    float64

	Running       bool
	ClutchEngaged bool

	ThetaChain float64
	OmegaChain float64
	OmegaGen   float64

	NetForce     float64
	ChainTorque  float64
	LoadTorque   float64
	OutputPower  float64
	TankPressure float64

	Floaters []FloaterState
	Events   []pneumatics.Event

	Diag  Diagnostics
	Stats metrics.PowerStats
}

// Digest fingerprints the dynamic state so two runs can be compared
// cheaply. Identical digests across identically-configured runs are the
// determinism contract.
func (s *Snapshot) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte

	writeF := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	writeU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	writeU(s.Tick)
	writeF(s.Time)
	writeF(s.ThetaChain)
	writeF(s.OmegaChain)
	writeF(s.OmegaGen)
	writeF(s.NetForce)
	writeF(s.ChainTorque)
	writeF(s.LoadTorque)
	writeF(s.OutputPower)
	writeF(s.TankPressure)
	if s.ClutchEngaged {
		writeU(1)
	} else {
		writeU(0)
	}
	for _, f := range s.Floaters {
		writeU(uint64(f.ID))
		writeF(f.LoopPosition)
		writeF(f.Direction)
		writeF(f.FillFraction)
		_, _ = h.WriteString(f.Valve)
	}
	writeU(s.Diag.SkippedTicks)
	writeU(s.Diag.SchedulingConflicts)

	return h.Sum64()
}
