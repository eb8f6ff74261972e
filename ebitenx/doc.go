// Package ebitenx renders ember particle effects with [Ebitengine].
//
// It provides two adapters: [TileSet] slices a sprite sheet into the
// flipbook animations ember's animation fetch expects, and [Renderer] turns
// the vertex buffers produced by ember.Context.Render into DrawTriangles
// calls.
//
//	tiles := ebitenx.NewTileSet(sheet, 32, 32)
//	tiles.AddAnimation("burn", ebitenx.Animation{
//		StartTile: 1, EndTile: 8, FPS: 12, Playback: ember.PlaybackLoopForward,
//	})
//	proto.SetTileSource(0, tiles)
//
//	r := ebitenx.NewRenderer(maxParticles)
//	// each frame:
//	ctx.Update(dt, ebitenx.Fetch)
//	r.Draw(screen, ctx)
//
// [Ebitengine]: https://ebitengine.org
package ebitenx
