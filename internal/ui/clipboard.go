package ui

import (
	"bytes"
	"image"
	"image/png"

	"golang.design/x/clipboard"
)

// copyImageToClipboard PNG-encodes img and places it on the system
// clipboard, so a screenshot can be pasted directly into chat or a bug
// report without touching the file saved alongside it.
func copyImageToClipboard(img image.Image) error {
	if err := clipboard.Init(); err != nil {
		return err
	}
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtImage, b.Bytes())
	return nil
}
