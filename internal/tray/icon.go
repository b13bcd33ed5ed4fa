package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/ankityadav/statusboard/internal/health"
)

const iconSize = 22

var (
	iconMu    sync.Mutex
	iconCache = map[health.Status][]byte{}
)

func iconColor(s health.Status) color.RGBA {
	switch s {
	case health.StatusOperational:
		return color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	case health.StatusDegraded:
		return color.RGBA{R: 0xea, G: 0xb3, B: 0x08, A: 0xff}
	case health.StatusOutage:
		return color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
	default:
		return color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
	}
}

// iconFor returns a PNG filled circle in the color of s.
func iconFor(s health.Status) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()

	if b, ok := iconCache[s]; ok {
		return b
	}

	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	fill := iconColor(s)
	center := float64(iconSize-1) / 2
	radius := float64(iconSize)/2 - 2

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	iconCache[s] = buf.Bytes()
	return iconCache[s]
}
