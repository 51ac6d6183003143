package entropack

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/op/go-logging"

	"github.com/seiflotfy/entropack/bitstream"
	"github.com/seiflotfy/entropack/code"
	"github.com/seiflotfy/entropack/freq"
	"github.com/seiflotfy/entropack/hamming"
	"github.com/seiflotfy/entropack/internal/prng"
	"github.com/seiflotfy/entropack/trie"
)

// ============================================================================
// Helper Functions
// ============================================================================

func init() {
	logging.SetLevel(logging.WARNING, "entropack")
}

func encodeBytes(t testing.TB, data []byte, opts ...Option) ([]byte, *Stats) {
	t.Helper()
	var buf bytes.Buffer
	st, err := NewEncoder(opts...).Encode(&buf, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if st.OutputBytes != int64(buf.Len()) {
		t.Fatalf("Stats.OutputBytes = %d, wrote %d", st.OutputBytes, buf.Len())
	}
	return buf.Bytes(), st
}

func decodeBytes(t testing.TB, archive []byte, opts ...Option) ([]byte, *Stats) {
	t.Helper()
	d, err := NewDecoder(opts...)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	st, err := d.Decode(&buf, bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return buf.Bytes(), st
}

// encodable drops the bytes the coders never see.
func encodable(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if freq.Encodable(b) {
			out = append(out, b)
		}
	}
	return out
}

func printableBytes() []byte {
	out := make([]byte, 0, 256-freq.MinSymbol)
	for b := freq.MinSymbol; b < 256; b++ {
		out = append(out, byte(b))
	}
	return out
}

// ============================================================================
// Round Trips
// ============================================================================

func TestRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":      nil,
		"one byte":   []byte("q"),
		"one symbol": bytes.Repeat([]byte("z"), 1000),
		"sentence":   []byte("the quick brown fox jumps over the lazy dog"),
		"all bytes":  printableBytes(),
		"random":     prng.New(1).Text(20000),
	}
	for _, coder := range []code.Kind{code.Huffman, code.ShannonFano} {
		for _, k := range []int{0, 1, 4, 7, 26, 64, 255} {
			for name, data := range inputs {
				archive, est := encodeBytes(t, data, WithCoder(coder), WithHamming(k))
				got, dst := decodeBytes(t, archive)
				if !bytes.Equal(got, data) {
					t.Fatalf("%v k=%d %s: round trip mismatch (%d bytes, want %d)", coder, k, name, len(got), len(data))
				}
				if dst.Symbols != est.Symbols || dst.Codewords != est.Codewords {
					t.Errorf("%v k=%d %s: decode stats %+v, encode stats %+v", coder, k, name, dst, est)
				}
			}
		}
	}
}

func TestControlBytesAreDropped(t *testing.T) {
	data := []byte("line one\nline two\r\n\ttabbed\x00\x1f end")
	for _, coder := range []code.Kind{code.Huffman, code.ShannonFano} {
		archive, st := encodeBytes(t, data, WithCoder(coder))
		if st.Symbols != uint64(len(encodable(data))) {
			t.Fatalf("%v: encoded %d symbols", coder, st.Symbols)
		}
		got, _ := decodeBytes(t, archive)
		if want := encodable(data); !bytes.Equal(got, want) {
			t.Fatalf("%v: got %q, want %q", coder, got, want)
		}
	}
}

func TestChunkSizeDoesNotChangeOutput(t *testing.T) {
	data := prng.New(7).Text(3000)
	for _, k := range []int{0, 5} {
		want, _ := encodeBytes(t, data, WithHamming(k))
		for _, size := range []int{1, 2, 3, 7, 8, 9, 31, 4096} {
			archive, _ := encodeBytes(t, data, WithHamming(k), WithChunkSize(size))
			if !bytes.Equal(archive, want) {
				t.Fatalf("k=%d chunk %d: archive differs", k, size)
			}
			got, _ := decodeBytes(t, archive, WithChunkSize(size))
			if !bytes.Equal(got, data) {
				t.Fatalf("k=%d chunk %d: round trip mismatch", k, size)
			}
		}
	}
}

func TestSingleSymbolHasNoPaddingArtifacts(t *testing.T) {
	// the single codeword is "0", so every zero padding bit would otherwise
	// decode as one more symbol
	for _, n := range []int{1, 3, 8, 13} {
		for _, k := range []int{0, 1, 11} {
			data := bytes.Repeat([]byte("A"), n)
			archive, st := encodeBytes(t, data, WithHamming(k))
			if st.Codewords != 1 {
				t.Fatalf("%d codewords", st.Codewords)
			}
			got, _ := decodeBytes(t, archive)
			if !bytes.Equal(got, data) {
				t.Fatalf("n=%d k=%d: got %q", n, k, got)
			}
		}
	}
}

// ============================================================================
// Wire Format
// ============================================================================

func TestArchiveLayout(t *testing.T) {
	archive, st := encodeBytes(t, []byte("aab"))
	want := []byte{
		countSymbol, countBits, 3, 0, 0, 0, 0, 0, 0, 0,
		'a', 1, 0b1,
		'b', 1, 0b0,
		0, 0,
		0b011, // a a b
	}
	if !bytes.Equal(archive, want) {
		t.Fatalf("archive = %v\nwant      %v", archive, want)
	}
	if st.HeaderBytes != int64(len(want)-1) {
		t.Fatalf("HeaderBytes = %d", st.HeaderBytes)
	}
}

func TestHammingArchiveLayout(t *testing.T) {
	archive, _ := encodeBytes(t, []byte("aab"), WithHamming(3))
	if !bytes.HasPrefix(archive, []byte{104, 109, 109, 99, 108, 3, countSymbol}) {
		t.Fatalf("archive starts with %v", archive[:7])
	}
	// 3 coded bits -> one 6-bit block -> one byte
	hdr := len(hammingMarker) + 1 + 10 + 6 + 2
	if len(archive) != hdr+1 {
		t.Fatalf("archive is %d bytes, want %d", len(archive), hdr+1)
	}
	block := bitstream.Unpack(nil, archive[hdr:])[:hamming.BlockLen(3)]
	payload, flipped := hamming.Decode(block)
	if flipped != -1 || !bytes.Equal(payload, []byte{1, 1, 0}) {
		t.Fatalf("body block decodes to %v (flipped %d)", payload, flipped)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var ft freq.Table
	ft.Add(prng.New(3).Text(500))
	codes, err := code.ShannonFano.Build(&ft)
	if err != nil {
		t.Fatal(err)
	}
	h := &Header{Hamming: 200, Codes: codes, Symbols: 1 << 40, HasCount: true}
	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	buf.WriteString("body")

	br := bufio.NewReader(&buf)
	got, _, m, err := readHeader(br)
	if err != nil {
		t.Fatal(err)
	}
	if m != n {
		t.Fatalf("read %d header bytes, wrote %d", m, n)
	}
	if got.Hamming != 200 || got.Symbols != 1<<40 || !got.HasCount || !got.Codes.Equal(codes) {
		t.Fatalf("header mismatch: %+v", got)
	}
	rest, _ := io.ReadAll(br)
	if string(rest) != "body" {
		t.Fatalf("reader left at %q", rest)
	}
}

func TestLegacyArchiveWithoutCount(t *testing.T) {
	var codes code.Table
	_ = codes.Set('a', []byte{0})
	_ = codes.Set('b', []byte{1})
	var buf bytes.Buffer
	if _, err := (&Header{Codes: &codes}).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	buf.WriteByte(0b10110010)
	got, st := decodeBytes(t, buf.Bytes())
	if string(got) != "abaabbab" {
		t.Fatalf("got %q", got)
	}
	if st.Symbols != 8 {
		t.Fatalf("Symbols = %d", st.Symbols)
	}
}

func TestMalformedHeaders(t *testing.T) {
	count := func(n uint64) []byte {
		return binary.LittleEndian.AppendUint64([]byte{countSymbol, countBits}, n)
	}
	cat := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty", nil, io.ErrUnexpectedEOF},
		{"no end marker", []byte{'a', 1, 0}, io.ErrUnexpectedEOF},
		{"half end marker", []byte{0}, io.ErrUnexpectedEOF},
		{"bad end marker", []byte{0, 7}, ErrMalformedHeader},
		{"zero hamming k", []byte("hmmcl\x00\x00\x00"), ErrMalformedHeader},
		{"truncated marker k", []byte("hmmcl"), io.ErrUnexpectedEOF},
		{"zero length", []byte{'a', 0, 0, 0}, ErrMalformedHeader},
		{"reserved symbol", []byte{0x05, 1, 0, 0, 0}, ErrMalformedHeader},
		{"duplicate symbol", []byte{'a', 1, 0, 'a', 1, 1, 0, 0}, ErrMalformedHeader},
		{"truncated codeword", []byte{'a', 9, 0}, io.ErrUnexpectedEOF},
		{"not prefix-free", []byte{'a', 1, 0, 'b', 2, 0, 0, 0}, trie.ErrConflict},
		{"short count record", []byte{countSymbol, 32, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, ErrMalformedHeader},
		{"two count records", cat(count(1), count(1), []byte{'a', 1, 0, 0, 0}), ErrMalformedHeader},
		{"count without codes", cat(count(4), []byte{0, 0, 0xff}), ErrMalformedHeader},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := NewDecoder()
			_, err := d.Decode(io.Discard, bytes.NewReader(tc.input))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("%v does not wrap ErrMalformedHeader", err)
			}
		})
	}
}

func TestInvalidCodeword(t *testing.T) {
	var codes code.Table
	_ = codes.Set('x', []byte{0})
	var buf bytes.Buffer
	_, _ = (&Header{Codes: &codes, Symbols: 4, HasCount: true}).WriteTo(&buf)
	buf.WriteByte(0b0100)
	d, _ := NewDecoder()
	_, err := d.Decode(io.Discard, &buf)
	if !errors.Is(err, ErrInvalidCodeword) {
		t.Fatalf("got %v, want ErrInvalidCodeword", err)
	}
}

func TestTruncatedBody(t *testing.T) {
	archive, st := encodeBytes(t, prng.New(9).Text(400))
	d, _ := NewDecoder()
	_, err := d.Decode(io.Discard, bytes.NewReader(archive[:st.HeaderBytes+10]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestEncodeRejectsBadHamming(t *testing.T) {
	for _, k := range []int{-1, 256} {
		_, err := NewEncoder(WithHamming(k)).Encode(io.Discard, bytes.NewReader([]byte("abc")))
		if !errors.Is(err, hamming.ErrPayloadLength) {
			t.Fatalf("k=%d: got %v", k, err)
		}
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.after--
	return len(p), nil
}

func TestEncodeWriteErrors(t *testing.T) {
	data := prng.New(4).Text(100)
	for after := 0; after < 2; after++ {
		_, err := NewEncoder(WithChunkSize(16)).Encode(&failingWriter{after: after}, bytes.NewReader(data))
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("after %d writes: got %v", after, err)
		}
	}
}

// ============================================================================
// Error Correction
// ============================================================================

func TestHammingCorrectsOneFlipPerBlock(t *testing.T) {
	rng := prng.New(12)
	data := rng.Text(5000)
	for _, coder := range []code.Kind{code.Huffman, code.ShannonFano} {
		for _, k := range []int{1, 4, 11, 57, 255} {
			archive, est := encodeBytes(t, data, WithCoder(coder), WithHamming(k))
			damaged := append([]byte(nil), archive...)
			body := damaged[est.HeaderBytes:]
			n := hamming.BlockLen(k)
			for b := 0; b < est.Blocks; b++ {
				i := b*n + rng.Intn(n)
				body[i/8] ^= 1 << (i % 8)
			}
			got, dst := decodeBytes(t, damaged)
			if !bytes.Equal(got, data) {
				t.Fatalf("%v k=%d: damaged archive did not round trip", coder, k)
			}
			if dst.Corrected != est.Blocks {
				t.Fatalf("%v k=%d: corrected %d of %d blocks", coder, k, dst.Corrected, est.Blocks)
			}
		}
	}
}

func TestUnprotectedFlipCorruptsOutput(t *testing.T) {
	data := prng.New(13).Text(2000)
	archive, st := encodeBytes(t, data)
	archive[st.HeaderBytes+20] ^= 0x10
	d, _ := NewDecoder()
	var buf bytes.Buffer
	if _, err := d.Decode(&buf, bytes.NewReader(archive)); err == nil && bytes.Equal(buf.Bytes(), data) {
		t.Fatal("flip in unprotected body went unnoticed")
	}
}

// ============================================================================
// Codebook Cache
// ============================================================================

func TestCodebookCache(t *testing.T) {
	data := prng.New(21).Text(1000)
	archive, _ := encodeBytes(t, data, WithHamming(9))
	// same table, different symbol count
	doubled, _ := encodeBytes(t, append(append([]byte(nil), data...), data...), WithHamming(9))

	d, err := NewDecoder(WithCodebookCacheSize(4))
	if err != nil {
		t.Fatal(err)
	}
	var hits []bool
	for _, a := range [][]byte{archive, archive, doubled} {
		var buf bytes.Buffer
		st, err := d.Decode(&buf, bytes.NewReader(a))
		if err != nil {
			t.Fatal(err)
		}
		hits = append(hits, st.CacheHit)
	}
	if hits[0] || !hits[1] || !hits[2] {
		t.Fatalf("cache hits = %v, want [false true true]", hits)
	}
	if d.CachedCodebooks() != 1 {
		t.Fatalf("CachedCodebooks() = %d", d.CachedCodebooks())
	}

	other, _ := encodeBytes(t, data, WithHamming(10))
	if _, st := decodeBytesWith(t, d, other); st.CacheHit {
		t.Fatal("different hamming k hit the cache")
	}
}

func TestCodebookCacheDisabled(t *testing.T) {
	archive, _ := encodeBytes(t, []byte("abcabcabc"))
	d, err := NewDecoder(WithCodebookCacheSize(0))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, st := decodeBytesWith(t, d, archive); st.CacheHit {
			t.Fatal("disabled cache reported a hit")
		}
	}
	if d.CachedCodebooks() != 0 {
		t.Fatalf("CachedCodebooks() = %d", d.CachedCodebooks())
	}
}

func decodeBytesWith(t *testing.T, d *Decoder, archive []byte) ([]byte, *Stats) {
	t.Helper()
	var buf bytes.Buffer
	st, err := d.Decode(&buf, bytes.NewReader(archive))
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), st
}
