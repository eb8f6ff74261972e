package ebitenx

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/ember"
)

// Animation names a contiguous 1-based tile range within a TileSet and how
// to play it.
type Animation struct {
	StartTile int
	EndTile   int
	FPS       float64
	Playback  ember.Playback
}

// TileSet is a grid-sliced sprite sheet with named flipbook animations. It
// implements the tile-source side of ember's animation fetch: bind one per
// emitter via Prototype.SetTileSource and pass [Fetch] to Context.Update.
type TileSet struct {
	// Image is the sheet texture, handed to the render callback for every
	// batch of an emitter animated from this set.
	Image *ebiten.Image

	tileWidth  int
	tileHeight int
	tileCount  int
	texCoords  []float32
	animations map[ember.Hash]Animation
}

// NewTileSet slices img into a row-major grid of tileWidth x tileHeight
// tiles. Tiles are numbered from 1, left to right then top to bottom.
func NewTileSet(img *ebiten.Image, tileWidth, tileHeight int) *TileSet {
	b := img.Bounds()
	ts := newTileSet(b.Dx(), b.Dy(), tileWidth, tileHeight)
	ts.Image = img
	return ts
}

// newTileSet builds the coordinate table from bare dimensions.
func newTileSet(sheetWidth, sheetHeight, tileWidth, tileHeight int) *TileSet {
	cols := sheetWidth / tileWidth
	rows := sheetHeight / tileHeight
	ts := &TileSet{
		tileWidth:  tileWidth,
		tileHeight: tileHeight,
		tileCount:  cols * rows,
		texCoords:  make([]float32, 0, cols*rows*4),
		animations: make(map[ember.Hash]Animation),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			ts.texCoords = append(ts.texCoords,
				float32(c*tileWidth)/float32(sheetWidth),
				float32(r*tileHeight)/float32(sheetHeight),
				float32((c+1)*tileWidth)/float32(sheetWidth),
				float32((r+1)*tileHeight)/float32(sheetHeight),
			)
		}
	}
	return ts
}

// TileCount returns how many whole tiles the sheet holds.
func (ts *TileSet) TileCount() int { return ts.tileCount }

// AddAnimation registers a named animation. Out-of-range or inverted tile
// ranges are clamped to the sheet.
func (ts *TileSet) AddAnimation(name string, a Animation) {
	if a.StartTile < 1 {
		a.StartTile = 1
	}
	if a.EndTile > ts.tileCount {
		a.EndTile = ts.tileCount
	}
	if a.EndTile < a.StartTile {
		a.EndTile = a.StartTile
	}
	ts.animations[ember.HashString(name)] = a
}

// Fetch resolves animations against TileSet tile sources. Pass it to
// ember's Context.Update.
func Fetch(tileSource any, animation ember.Hash, out *ember.AnimationData) ember.FetchResult {
	ts, ok := tileSource.(*TileSet)
	if !ok {
		return ember.FetchError
	}
	a, ok := ts.animations[animation]
	if !ok {
		return ember.FetchNotFound
	}
	out.Texture = ts.Image
	out.TexCoords = ts.texCoords
	out.TileWidth = float64(ts.tileWidth)
	out.TileHeight = float64(ts.tileHeight)
	out.StartTile = a.StartTile
	out.EndTile = a.EndTile
	out.FPS = a.FPS
	out.Playback = a.Playback
	return ember.FetchOK
}
