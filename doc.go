// Package ember is a deterministic, CPU-simulated particle effect engine.
//
// Ember simulates particle effects described by declarative YAML
// prototypes: emitters with spawn-rate, lifetime, size, color and rotation
// curves, composable force modifiers (acceleration, drag, radial, vortex),
// flipbook animation bindings, and render-constant overrides. It produces
// packed vertex buffers and leaves drawing to the caller, so it runs
// headless in tests and plugs into any renderer. An [Ebitengine] adapter
// lives in ember/ebitenx.
//
// # Quick start
//
// Load a [Prototype] from YAML, create an instance in a [Context], and pump
// Update/Render from your game loop:
//
//	proto, err := ember.NewPrototype(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx := ember.NewContext(64, 256)
//	fx, _ := ctx.CreateInstance(proto)
//	ctx.StartInstance(fx)
//
//	buf := make([]byte, ember.VertexBufferSize(256))
//	for {
//		ctx.Update(1.0/60, nil)
//		n, _ := ctx.Render(buf, nil, drawBatch)
//		// hand buf[:n] to the GPU
//	}
//
// # Determinism
//
// Every emitter owns a seeded generator; [Context.ResetInstance] preserves
// the seed, so Reset+Start replays the exact same particle stream. Reloading
// a prototype with [Context.ReloadInstance] carries live particles and
// generator state over, which makes hot-reloading a running effect
// seamless.
//
// # Handles
//
// Instances are addressed by [Handle], a pooled index plus generation
// counter. A handle kept past DestroyInstance fails every call with
// [ErrStaleHandle] instead of touching a recycled slot.
//
// Tweens for instance transforms are provided via [gween]; see
// [TweenPosition].
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package ember
