package ember

import "math/rand/v2"

// emitterRand is a deterministic per-emitter random stream. The PCG state is
// held by value so copying an emitterRand copies the stream position, which
// is what lets reload carry a live emitter forward bit-identically.
type emitterRand struct {
	seed uint64
	pcg  rand.PCG
}

func newEmitterRand(seed uint64) emitterRand {
	r := emitterRand{seed: seed}
	r.reset()
	return r
}

// reset rewinds the stream to its seeded origin. A Reset+Start replay then
// draws the exact sequence the first playback drew.
func (r *emitterRand) reset() {
	r.pcg = *rand.NewPCG(r.seed, splitmix64(r.seed))
}

// float64 returns a uniform value in [0, 1).
func (r *emitterRand) float64() float64 {
	return float64(r.pcg.Uint64()>>11) / (1 << 53)
}

// spread returns a uniform value in [-1, 1], the perturbation fed to
// Property.Sample.
func (r *emitterRand) spread() float64 {
	return 2*r.float64() - 1
}

// splitmix64 mixes x into a well-distributed 64-bit value. Used to derive
// per-emitter seeds from the instance seed and the second PCG stream word.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
