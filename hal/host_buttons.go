//go:build !tinygo && cgo

package hal

import "github.com/hajimehoshi/ebiten/v2"

// buttonKeys maps keys to button ids: play/pause, stop, next, volume, back.
// The arrows double as list navigation on the select screen.
var buttonKeys = [...][]ebiten.Key{
	0: {ebiten.KeySpace, ebiten.KeyEnter},
	1: {ebiten.KeyS},
	2: {ebiten.KeyArrowDown, ebiten.KeyN},
	3: {ebiten.KeyArrowUp, ebiten.KeyV},
	4: {ebiten.KeyArrowLeft, ebiten.KeyBackspace, ebiten.KeyEscape},
}

// pollButtons mirrors key state onto the button pins; a key going down is
// a rising edge and so a press.
func pollButtons(b *hostButtons) {
	for id, keys := range buttonKeys {
		down := false
		for _, k := range keys {
			if ebiten.IsKeyPressed(k) {
				down = true
				break
			}
		}
		b.set(id, down)
	}
}
