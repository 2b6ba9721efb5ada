// Package trial runs containment trials against a physics engine.
//
// A trial places a container and a smaller object above an optional fixed
// balancer, then advances the engine frame by frame. Object trials only
// observe. Transition trials watch the container and push the object once the
// container has come to rest with the object still inside. Agent trials walk
// the object towards a target until it touches it.
package trial
