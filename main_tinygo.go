//go:build tinygo

package main

import (
	"jukebox/app"
	"jukebox/hal"
)

func main() {
	app.Run(hal.New())
}

