package filters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"

	"golang.org/x/image/ccitt"

	"github.com/wudi/pdfdedup/ir/raw"
)

// Image codecs are terminal filters: their output is the encoded image as
// stored, so these decoders only verify the payload is readable and return
// the input unchanged.

const (
	// maxNativeImageDimension caps the width and height read from headers.
	maxNativeImageDimension = 32768
	// maxNativeImagePixels bounds the total pixel count (roughly 64MP).
	maxNativeImagePixels int64 = 64 * 1024 * 1024
)

var errEmptyPayload = errors.New("empty image payload")

func validateNativeImageBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxNativeImageDimension || height > maxNativeImageDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	pixels := int64(width) * int64(height)
	if pixels > maxNativeImagePixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, maxNativeImagePixels)
	}
	return nil
}

type dctDecoder struct{}

func (dctDecoder) Name() string { return "DCTDecode" }
func NewDCTDecoder() Decoder    { return dctDecoder{} }

func (dctDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary, limit int64) ([]byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	if err := validateNativeImageBounds(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	return in, nil
}

type ccittFaxDecoder struct{}

func (ccittFaxDecoder) Name() string { return "CCITTFaxDecode" }
func NewCCITTFaxDecoder() Decoder    { return ccittFaxDecoder{} }

// Decode runs the fax bitstream through the CCITT reader. Mixed 1D/2D
// encoding (K > 0) has no reader and is accepted as stored.
func (ccittFaxDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary, limit int64) ([]byte, error) {
	if len(in) == 0 {
		return nil, errEmptyPayload
	}
	k, _ := raw.Lookup(params, "K").Int()
	if k > 0 {
		return in, nil
	}
	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}
	columns := int64(1728)
	if v, ok := raw.Lookup(params, "Columns").Int(); ok && v > 0 {
		columns = v
	}
	rows := int64(ccitt.AutoDetectHeight)
	if v, ok := raw.Lookup(params, "Rows").Int(); ok && v > 0 {
		rows = v
	}
	align := false
	if b, ok := lookupBool(params, "EncodedByteAlign"); ok {
		align = b
	}
	r := ccitt.NewReader(bytes.NewReader(in), ccitt.MSB, sf, int(columns), int(rows), &ccitt.Options{Align: align})
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return in, nil
}

var (
	jp2Signature = []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}
	j2kSignature = []byte{0xFF, 0x4F, 0xFF, 0x51}
)

type jpxDecoder struct{}

func (jpxDecoder) Name() string { return "JPXDecode" }
func NewJPXDecoder() Decoder    { return jpxDecoder{} }

func (jpxDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary, limit int64) ([]byte, error) {
	if bytes.HasPrefix(in, jp2Signature) || bytes.HasPrefix(in, j2kSignature) {
		return in, nil
	}
	return nil, errors.New("missing JPEG 2000 signature")
}

type jbig2Decoder struct{}

func (jbig2Decoder) Name() string { return "JBIG2Decode" }
func NewJBIG2Decoder() Decoder    { return jbig2Decoder{} }

// Embedded JBIG2 streams carry no file header; only emptiness is checked.
func (jbig2Decoder) Decode(ctx context.Context, in []byte, params raw.Dictionary, limit int64) ([]byte, error) {
	if len(in) == 0 {
		return nil, errEmptyPayload
	}
	return in, nil
}

func lookupBool(d raw.Dictionary, key string) (bool, bool) {
	v := raw.Lookup(d, key)
	if v.Kind != raw.KindOther {
		return false, false
	}
	b, ok := v.Obj.(raw.Boolean)
	if !ok {
		return false, false
	}
	return b.Value(), true
}
