// Package buoyancy provides the floater data model and its force model.
//
// A [Floater] is a chamber riding the chain loop, alternating between an
// air-filled (buoyant) and a water-filled (heavy) state. Its transition is
// continuous: [Floater.FillFraction] in [0,1] scales both the buoyant force
// and the retained water mass, so a floater mid-injection contributes a
// partial lift.
//
// Force computation is pure: [Forces] maps a floater, its tangential
// velocity, an [Environment] and an [Effects] block to the three forces
// acting along the vertical axis:
//
//   - buoyant: rho * g * volume * fill
//   - weight:  (massEmpty + (1-fill) * rho * volume) * g
//   - drag:    0.5 * Cd * rho * area * v^2, opposing motion
//
// Callers are expected to keep FillFraction inside [0,1]; Forces does not
// clamp, so an out-of-range fraction surfaces as an out-of-range force in
// tests rather than being masked here.
package buoyancy
