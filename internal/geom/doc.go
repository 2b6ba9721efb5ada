// Package geom provides the small amount of 3D math the trial controller needs.
//
// The engine reports positions as plain vectors and rotations as unit
// quaternions in (x, y, z, w) order:
//
//   - [Vec3]: position, extent and Euler-angle vector
//   - [Quat]: engine quaternion
//   - [EulerDegrees]: quaternion to Euler degrees under an [EulerOrder]
//   - [StdDev]: population standard deviation per axis
//
// # Euler Convention
//
// The axis convention used by the engine is not guaranteed to match the
// default [OrderXYZ]. Pick the order explicitly when the engine is known to
// differ:
//
//	order, _ := geom.ParseEulerOrder("unity")
//	deg := geom.EulerDegrees(q, order)
package geom
