package filters

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/wudi/pdfdedup/ir/raw"
)

func TestFlateDecode(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write([]byte("hello world"))
	w.Close()

	dec := NewFlateDecoder()
	out, err := dec.Decode(context.Background(), buf.Bytes(), nil, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateDecodeCorrupt(t *testing.T) {
	if _, err := NewFlateDecoder().Decode(context.Background(), []byte("not deflate at all"), nil, 0); err == nil {
		t.Fatalf("expected error for corrupt flate data")
	}
}

func TestLZWDecode(t *testing.T) {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	input := []byte("hello hello hello")
	if _, err := w.Write(input); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	params := raw.Dict()
	params.Set(raw.NameLiteral("EarlyChange"), raw.NumberInt(0))

	out, err := NewLZWDecoder().Decode(context.Background(), buf.Bytes(), params, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// literal run of 3, repeat 'z' 4 times, EOD
	in := []byte{2, 'a', 'b', 'c', 253, 'z', 128}
	out, err := NewRunLengthDecoder().Decode(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "abczzzz" {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := NewRunLengthDecoder().Decode(context.Background(), []byte{5, 'a'}, nil, 0); err == nil {
		t.Fatalf("expected truncated literal run to fail")
	}
}

func TestASCII85Decode(t *testing.T) {
	out, err := NewASCII85Decoder().Decode(context.Background(), []byte("<~87cURD]i,\"Ebo80~>"), nil, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "Hello World!" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	out, err := NewASCIIHexDecoder().Decode(context.Background(), []byte("48 65 6C\n6C 6F 2>"), nil, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "Hello " {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := NewASCIIHexDecoder().Decode(context.Background(), []byte("zz>"), nil, 0); err == nil {
		t.Fatalf("expected invalid hex digits to fail")
	}
}

func TestDCTDecode(t *testing.T) {
	data := sampleJPEG(t)
	out, err := NewDCTDecoder().Decode(context.Background(), data, nil, 0)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("DCT check must return the stored bytes")
	}
	if _, err := NewDCTDecoder().Decode(context.Background(), []byte("ABC"), nil, 0); err == nil {
		t.Fatalf("expected garbage JPEG to fail")
	}
}

func TestJPXSignature(t *testing.T) {
	if _, err := NewJPXDecoder().Decode(context.Background(), append([]byte{}, j2kSignature...), nil, 0); err != nil {
		t.Fatalf("codestream signature rejected: %v", err)
	}
	if _, err := NewJPXDecoder().Decode(context.Background(), []byte("\x89PNG"), nil, 0); err == nil {
		t.Fatalf("expected PNG payload to be rejected as JPX")
	}
}

func TestCCITTFaxMixedModeAccepted(t *testing.T) {
	params := raw.Dict()
	params.Set(raw.NameLiteral("K"), raw.NumberInt(2))
	if _, err := NewCCITTFaxDecoder().Decode(context.Background(), []byte{0x01}, params, 0); err != nil {
		t.Fatalf("mixed mode payload should pass through: %v", err)
	}
	if _, err := NewCCITTFaxDecoder().Decode(context.Background(), nil, params, 0); err == nil {
		t.Fatalf("empty payload should fail")
	}
}

func TestPipelineUnknownFilter(t *testing.T) {
	p := NewDefaultPipeline(Limits{})
	_, err := p.Decode(context.Background(), []byte("x"), []string{"Crypt"}, nil)
	if !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
}

func TestPipelineSizeLimit(t *testing.T) {
	p := NewDefaultPipeline(Limits{MaxDecompressedSize: 4})
	_, err := p.Decode(context.Background(), []byte("48656C6C6F>"), []string{"ASCIIHexDecode"}, nil)
	if !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}

func TestCheckerChain(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(sampleJPEG(t))
	w.Close()

	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Filter"), raw.NewArray(raw.NameLiteral("FlateDecode"), raw.NameLiteral("DCTDecode")))
	dict.Set(raw.NameLiteral("DecodeParms"), raw.NewArray(raw.NullObj{}, raw.NullObj{}))

	c := NewChecker(nil)
	if err := c.Check(context.Background(), raw.NewStream(dict, buf.Bytes())); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if err := c.Check(context.Background(), raw.NewStream(dict, []byte("junk"))); err == nil {
		t.Fatalf("expected corrupt chain to fail")
	}
	if err := c.Check(context.Background(), raw.NewStream(raw.Dict(), []byte("unfiltered"))); err != nil {
		t.Fatalf("unfiltered stream should pass: %v", err)
	}
}

func TestFlateDecodeStopsAtLimit(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(make([]byte, 8<<20))
	w.Close()

	_, err := NewFlateDecoder().Decode(context.Background(), buf.Bytes(), nil, 1<<20)
	if !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
	out, err := NewFlateDecoder().Decode(context.Background(), buf.Bytes(), nil, 8<<20)
	if err != nil || len(out) != 8<<20 {
		t.Fatalf("output at the limit should pass: len=%d err=%v", len(out), err)
	}

	p := NewDefaultPipeline(Limits{MaxDecompressedSize: 1 << 20})
	if _, err := p.Decode(context.Background(), buf.Bytes(), []string{"FlateDecode"}, nil); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("pipeline should pass its limit down, got %v", err)
	}
}

func TestLZWDecodeStopsAtLimit(t *testing.T) {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write(bytes.Repeat([]byte("a"), 1<<16))
	w.Close()

	params := raw.Dict()
	params.Set(raw.NameLiteral("EarlyChange"), raw.NumberInt(0))
	if _, err := NewLZWDecoder().Decode(context.Background(), buf.Bytes(), params, 1024); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}

func TestRunLengthDecodeStopsAtLimit(t *testing.T) {
	// each pair repeats 'x' 128 times
	in := bytes.Repeat([]byte{129, 'x'}, 64)
	if _, err := NewRunLengthDecoder().Decode(context.Background(), in, nil, 1000); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
	out, err := NewRunLengthDecoder().Decode(context.Background(), in, nil, 64*128)
	if err != nil || len(out) != 64*128 {
		t.Fatalf("output at the limit should pass: len=%d err=%v", len(out), err)
	}
}

func TestExtractFiltersAlignsParams(t *testing.T) {
	p := raw.Dict()
	p.Set(raw.NameLiteral("K"), raw.NumberInt(-1))
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Filter"), raw.NewArray(raw.NameLiteral("ASCIIHexDecode"), raw.NameLiteral("CCITTFaxDecode")))
	dict.Set(raw.NameLiteral("DecodeParms"), raw.NewArray(raw.NullObj{}, p))

	names, params := ExtractFilters(dict)
	if len(names) != 2 || len(params) != 2 {
		t.Fatalf("unexpected lengths %d %d", len(names), len(params))
	}
	if params[0] != nil {
		t.Fatalf("null DecodeParms entry should map to nil")
	}
	if k, _ := raw.Lookup(params[1], "K").Int(); k != -1 {
		t.Fatalf("expected K=-1, got %d", k)
	}
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 3)
	}
	img.Set(0, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestImageHeaderBounds(t *testing.T) {
	cases := []struct {
		w, h int
		ok   bool
	}{
		{1024, 512, true},
		{0, 10, false},
		{maxNativeImageDimension + 1, 4, false},
		{20000, int(maxNativeImagePixels/20000) + 1, false},
	}
	for _, c := range cases {
		err := validateNativeImageBounds(c.w, c.h)
		if (err == nil) != c.ok {
			t.Fatalf("%dx%d: got err=%v, want ok=%v", c.w, c.h, err, c.ok)
		}
	}
}
