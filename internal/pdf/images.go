package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	_ "image/png"
)

// ImageXObject decodes PNG data into a DeviceRGB image XObject. Transparency
// is composited over white since signature marks end up on white pages.
func ImageXObject(pngData []byte) (*Stream, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgb := make([]byte, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			rgb = append(rgb,
				compositeOverWhite(r, a),
				compositeOverWhite(g, a),
				compositeOverWhite(b, a))
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(rgb); err != nil {
		return nil, 0, 0, fmt.Errorf("compress image: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, 0, fmt.Errorf("compress image: %w", err)
	}

	dict := NewDict()
	dict.Set("Type", Name("XObject"))
	dict.Set("Subtype", Name("Image"))
	dict.Set("Width", Integer(w))
	dict.Set("Height", Integer(h))
	dict.Set("ColorSpace", Name("DeviceRGB"))
	dict.Set("BitsPerComponent", Integer(8))
	dict.Set("Filter", Name("FlateDecode"))
	return &Stream{Dict: dict, Data: compressed.Bytes()}, w, h, nil
}

// compositeOverWhite blends a premultiplied 16-bit channel over a white
// background and narrows it to 8 bits.
func compositeOverWhite(c, a uint32) byte {
	// RGBA() returns alpha-premultiplied values in [0, 0xffff].
	v := c + (0xffff - a)
	if v > 0xffff {
		v = 0xffff
	}
	return byte(v >> 8)
}
