package ember

// Playback selects how a flipbook animation advances over a particle's life.
type Playback uint8

const (
	// PlaybackNone pins every particle to the animation's first tile.
	PlaybackNone Playback = iota
	PlaybackOnceForward
	PlaybackOnceBackward
	PlaybackLoopForward
	PlaybackLoopBackward
	PlaybackPingPong
)

// AnimationData describes one flipbook animation inside a tile source. The
// engine never inspects tile sources itself; a FetchAnimationFunc fills this
// struct from whatever atlas format the application uses.
//
// TexCoords holds four floats per tile (u0, v0, u1, v1) for every tile of
// the source, indexed from tile 1. StartTile and EndTile are inclusive
// 1-based tile numbers into that table.
type AnimationData struct {
	// Texture is handed through untouched to the render callback.
	Texture    any
	TexCoords  []float32
	TileWidth  float64
	TileHeight float64
	StartTile  int
	EndTile    int
	FPS        float64
	Playback   Playback
}

// FetchResult reports the outcome of an animation lookup.
type FetchResult uint8

const (
	FetchOK FetchResult = iota
	// FetchNotFound means the tile source had no animation by that name.
	FetchNotFound
	// FetchError means the tile source itself could not be resolved.
	FetchError
)

// FetchAnimationFunc resolves an animation by hashed name within an opaque
// tile source. It is called once per emitter per Update; an emitter whose
// fetch does not return FetchOK simulates normally but emits no vertices.
type FetchAnimationFunc func(tileSource any, animation Hash, out *AnimationData) FetchResult

// tileCount returns how many tiles the animation spans, at least 1.
func (a *AnimationData) tileCount() int {
	n := a.EndTile - a.StartTile + 1
	if n < 1 {
		return 1
	}
	return n
}

// frame maps a particle age to a flipbook frame index in [0, tileCount).
func (a *AnimationData) frame(age float64) int {
	n := a.tileCount()
	if a.Playback == PlaybackNone || n == 1 || a.FPS <= 0 {
		return 0
	}
	k := int(age * a.FPS)
	if k < 0 {
		k = 0
	}
	switch a.Playback {
	case PlaybackOnceForward:
		if k > n-1 {
			k = n - 1
		}
		return k
	case PlaybackOnceBackward:
		if k > n-1 {
			k = n - 1
		}
		return n - 1 - k
	case PlaybackLoopForward:
		return k % n
	case PlaybackLoopBackward:
		return n - 1 - k%n
	case PlaybackPingPong:
		m := k % (2*n - 2)
		if m >= n {
			m = 2*n - 2 - m
		}
		return m
	}
	return 0
}

// tileUV returns the texture rectangle of the given frame. An animation
// without texture coordinates covers the full texture.
func (a *AnimationData) tileUV(frame int) (u0, v0, u1, v1 float32) {
	tile := a.StartTile - 1 + frame
	base := tile * 4
	if base < 0 || base+4 > len(a.TexCoords) {
		return 0, 0, 1, 1
	}
	return a.TexCoords[base], a.TexCoords[base+1], a.TexCoords[base+2], a.TexCoords[base+3]
}

// aspect returns per-axis size factors so non-square tiles keep their shape
// when a particle's size sets the longest side.
func (a *AnimationData) aspect() (wf, hf float64) {
	if a.TileWidth <= 0 || a.TileHeight <= 0 {
		return 1, 1
	}
	if a.TileWidth > a.TileHeight {
		return 1, a.TileHeight / a.TileWidth
	}
	return a.TileWidth / a.TileHeight, 1
}
