package entropack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/seiflotfy/entropack/bitstream"
	"github.com/seiflotfy/entropack/trie"
)

// Decoder reads archives. It caches the codebooks of recently seen
// headers and may be reused for any number of sequential decodes.
type Decoder struct {
	config Config
	cache  *codebookCache
}

// NewDecoder creates a new decoder with the given options.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := newConfig(opts)
	cache, err := newCodebookCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Decoder{config: cfg, cache: cache}, nil
}

// CachedCodebooks returns the number of codebooks held by the cache.
func (d *Decoder) CachedCodebooks() int { return d.cache.len() }

// Decode parses the archive in src and writes the decoded bytes to dst.
// When the header records a symbol count, decoding stops after that many
// symbols and trailing padding is ignored; otherwise every complete
// codeword up to the end of src is emitted.
func (d *Decoder) Decode(dst io.Writer, src io.Reader) (*Stats, error) {
	cfg := d.config
	lg := cfg.Logger

	br := bufio.NewReaderSize(src, cfg.ChunkSize)
	h, key, hdrLen, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	cb, hit, err := d.cache.get(h, key)
	if err != nil {
		return nil, err
	}
	st := &Stats{HeaderBytes: hdrLen, InputBytes: hdrLen, Codewords: cb.codes, CacheHit: hit}
	lg.Debugf("header %d bytes, %d codewords, hamming k=%d, cached=%v", hdrLen, cb.codes, h.Hamming, hit)

	if h.HasCount && h.Symbols > 0 && cb.codes == 0 {
		return st, fmt.Errorf("%w: %d symbols but no codewords", ErrMalformedHeader, h.Symbols)
	}

	buf := make([]byte, cfg.ChunkSize)
	out := make([]byte, 0, cfg.ChunkSize)
	var raw, coded []byte
	done := h.HasCount && h.Symbols == 0
	for !done {
		n, rerr := br.Read(buf)
		st.InputBytes += int64(n)
		if n > 0 {
			if cb.codec == nil {
				coded = bitstream.Unpack(coded, buf[:n])
			} else {
				raw = bitstream.Unpack(raw, buf[:n])
				aligned := cb.codec.AlignedBlocks(len(raw))
				var corrected int
				coded, corrected, err = cb.codec.DecodeBlocks(coded, raw[:aligned])
				if err != nil {
					return st, err
				}
				st.Blocks += aligned / cb.codec.BlockLen()
				st.Corrected += corrected
				raw = raw[:copy(raw, raw[aligned:])]
			}

			off := 0
			for off < len(coded) {
				sym, m, err := cb.trie.Match(coded[off:])
				if errors.Is(err, trie.ErrIncomplete) {
					break
				}
				if err != nil {
					return st, fmt.Errorf("%w: at symbol %d", ErrInvalidCodeword, st.Symbols)
				}
				out = append(out, sym)
				off += m
				st.Symbols++
				if h.HasCount && st.Symbols == h.Symbols {
					done = true
					break
				}
			}
			coded = coded[:copy(coded, coded[off:])]

			if len(out) > 0 {
				w, err := writeBytes(dst, out)
				st.OutputBytes += w
				if err != nil {
					return st, fmt.Errorf("write output: %w", err)
				}
				out = out[:0]
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return st, fmt.Errorf("read body: %w", rerr)
		}
	}
	if h.HasCount && st.Symbols < h.Symbols {
		return st, fmt.Errorf("decoded %d of %d symbols: %w", st.Symbols, h.Symbols, io.ErrUnexpectedEOF)
	}
	if st.Corrected > 0 {
		lg.Infof("corrected %d of %d hamming blocks", st.Corrected, st.Blocks)
	}
	lg.Debugf("decoded %d symbols from %d bytes", st.Symbols, st.InputBytes)
	return st, nil
}

// DecodeFile decodes archivePath next to it and returns the output path.
// The suffix is checked before anything is opened. The output is created
// under the first free name from OutputPath and removed if decoding fails.
func (d *Decoder) DecodeFile(archivePath string) (path string, err error) {
	candidate, err := OutputPath(archivePath)
	if err != nil {
		return "", err
	}
	src, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer src.Close()

	f, path, err := createOutput(candidate)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	st, err := d.Decode(bw, src)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", archivePath, err)
	}
	d.config.Logger.Infof("%s: %d -> %d bytes", path, st.InputBytes, st.OutputBytes)
	return path, nil
}

// DecodeFile decodes archivePath with a one-off Decoder.
func DecodeFile(archivePath string, opts ...Option) (string, error) {
	d, err := NewDecoder(opts...)
	if err != nil {
		return "", err
	}
	return d.DecodeFile(archivePath)
}
