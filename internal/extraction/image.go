package extraction

import (
	"bytes"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxImageSide = 1600
	jpegQuality         = 85
)

// prepareImage shrinks large photos before upload. Anything that is not a
// decodable image (PDF invoices, for instance) is sent as is.
func prepareImage(data []byte, mimeType string, maxSide int) ([]byte, string) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if !strings.HasPrefix(mimeType, "image/") || maxSide <= 0 {
		return data, mimeType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mimeType
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxSide && bounds.Dy() <= maxSide {
		return data, mimeType
	}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}
