// Package engine speaks the remote command protocol of the external physics
// and rendering engine.
//
// Every simulated frame is one blocking round trip: an ordered batch of
// [Command] values goes out, one [Response] comes back. The response is a
// list of tagged records which are decoded into typed values:
//
//   - [Transforms] ("tran"): position and rotation per object
//   - [Rigidbodies] ("rigi"): velocity and sleep state per object
//   - [StaticRigidbodies] ("srig"): mass per object
//   - [Images] ("imag"): encoded image passes from an avatar
//
// [Parser] turns a response into per-object [Sample] values. [WSClient] is the
// websocket transport; anything implementing [Communicator] can stand in for
// it.
package engine
