// Package entropack compresses files with a static entropy code, Huffman or
// Shannon-Fano, optionally protected by a Hamming single-error-correcting
// block code.
//
// An archive is a self-describing header followed by the packed body:
//
//	[ "hmmcl" k ]                       only when Hamming protection is on
//	[ symbol L codeword[ceil(L/8)] ]... codewords packed LSB-first
//	[ 0x00 0x00 ]                       end of header
//	[ body ]                            codewords, or n-bit Hamming blocks
//
// Only bytes 32..255 are encoded. Lower bytes are dropped from the output.
package entropack

import (
	"errors"

	"github.com/op/go-logging"

	"github.com/seiflotfy/entropack/code"
)

const (
	// Suffix is appended to a destination base to name an archive.
	Suffix = ".nk"
	// DefaultChunkSize is the read buffer size used by both passes.
	DefaultChunkSize = 2 << 20
	// DefaultCacheSize is the number of codebooks a Decoder keeps.
	DefaultCacheSize = 16

	hammingMarker = "hmmcl"
	// countSymbol tags the header record holding the number of encoded
	// symbols. Symbols below 32 never carry codewords.
	countSymbol = 0x01
	countBits   = 64
)

var log = logging.MustGetLogger("entropack")

var (
	// ErrArchiveSuffix indicates a decode path that does not end in Suffix.
	ErrArchiveSuffix = errors.New("archive path lacks the " + Suffix + " suffix")
	// ErrMalformedHeader indicates an archive header that cannot be parsed.
	ErrMalformedHeader = errors.New("malformed archive header")
	// ErrInvalidCodeword indicates body bits that match no codeword.
	ErrInvalidCodeword = errors.New("invalid codeword in archive body")
)

// Config holds configuration shared by the Encoder and Decoder.
type Config struct {
	Coder     code.Kind       // entropy coder (0 = Huffman)
	Hamming   int             // Hamming payload length k (0 = no protection)
	ChunkSize int             // read buffer size (0 = DefaultChunkSize)
	CacheSize int             // decoder codebook cache entries (negative disables)
	Logger    *logging.Logger // nil = package logger
}

// Option is a functional option for configuring encoders and decoders.
type Option func(*Config)

// WithCoder selects the entropy coder used by the Encoder.
func WithCoder(k code.Kind) Option {
	return func(c *Config) {
		c.Coder = k
	}
}

// WithHamming protects the archive body with k-bit payload Hamming blocks.
// Valid range is [1, 255]; 0 turns protection off.
func WithHamming(k int) Option {
	return func(c *Config) {
		c.Hamming = k
	}
}

// WithChunkSize sets the size of the buffer used for bounded reads.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		c.ChunkSize = n
	}
}

// WithCodebookCacheSize sets how many parsed codebooks a Decoder keeps.
// Zero disables the cache.
func WithCodebookCacheSize(n int) Option {
	return func(c *Config) {
		if n == 0 {
			n = -1
		}
		c.CacheSize = n
	}
}

// WithLogger routes diagnostics to l instead of the package logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Coder == 0 {
		cfg.Coder = code.Huffman
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	return cfg
}

// Stats describes one encode or decode run.
type Stats struct {
	HeaderBytes int64  // archive header size
	InputBytes  int64  // bytes read from the source, header included
	OutputBytes int64  // bytes written to the destination
	Symbols     uint64 // symbols encoded or decoded
	Codewords   int    // entries in the code table
	Blocks      int    // Hamming blocks written or read
	Corrected   int    // Hamming blocks with a corrected bit
	CacheHit    bool   // codebook came from the decoder cache
}
