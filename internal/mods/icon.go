package mods

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// IconSize is the fixed thumbnail dimension every stored mod icon is
// rescaled to, per spec.md §4.5.
const IconSize = 45

// RescaleIcon decodes an arbitrary PNG/JPEG icon and rescales it to a
// 45x45 PNG, the form ModMetadata.Icon and LogoShadow.Data are stored in.
// golang.org/x/image/draw is used instead of hand-rolled nearest-neighbor
// sampling because its CatmullRom scaler is already pulled in by the
// example pack's Fyne-based launcher and produces materially better
// thumbnails than stdlib's image/draw, which only supports nearest
// neighbor and straight copy.
func RescaleIcon(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding icon: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding icon: %w", err)
	}
	return buf.Bytes(), nil
}
