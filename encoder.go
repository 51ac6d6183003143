package entropack

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	"github.com/seiflotfy/entropack/bitstream"
	"github.com/seiflotfy/entropack/code"
	"github.com/seiflotfy/entropack/freq"
	"github.com/seiflotfy/entropack/hamming"
)

// Encoder builds a code table from its input and writes archives.
type Encoder struct {
	config Config
}

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{config: newConfig(opts)}
}

// countingWriter tracks how many bytes reach w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Encode reads src twice, once to count byte frequencies and once to
// substitute codewords, and writes the archive to dst.
func (e *Encoder) Encode(dst io.Writer, src io.ReadSeeker) (*Stats, error) {
	cfg := e.config
	lg := cfg.Logger

	var codec *hamming.Codec
	if cfg.Hamming != 0 {
		c, err := hamming.NewCodec(cfg.Hamming)
		if err != nil {
			return nil, err
		}
		codec = c
	}

	buf := make([]byte, cfg.ChunkSize)
	ft, read, err := freq.ReadFrom(src, buf)
	if err != nil {
		return nil, fmt.Errorf("count pass: %w", err)
	}
	codes, err := cfg.Coder.Build(ft)
	if err != nil {
		return nil, err
	}
	lg.Debugf("counted %d bytes, %d symbols, %d distinct", read, ft.Total(), ft.Distinct())

	out := &countingWriter{w: dst}
	st := &Stats{Codewords: codes.Len(), Symbols: ft.Total()}
	h := &Header{Hamming: cfg.Hamming, Codes: codes, Symbols: ft.Total(), HasCount: true}
	if st.HeaderBytes, err = h.WriteTo(out); err != nil {
		return st, fmt.Errorf("write header: %w", err)
	}
	if lg.IsEnabledFor(logging.DEBUG) {
		lg.Debugf("header %d bytes, %s code, max codeword %d bits", st.HeaderBytes, cfg.Coder, codes.MaxCodeLen())
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return st, fmt.Errorf("rewind source: %w", err)
	}

	bs := bitstream.New()
	var pending, blocks []byte
	for {
		n, rerr := src.Read(buf)
		st.InputBytes += int64(n)
		for _, b := range buf[:n] {
			c, ok := codes.Lookup(b)
			if !ok {
				continue
			}
			if codec == nil {
				bs.AppendBits(c)
			} else {
				pending = append(pending, c...)
			}
		}
		if codec != nil {
			aligned := codec.Aligned(len(pending))
			blocks = codec.EncodeBlocks(blocks[:0], pending[:aligned])
			st.Blocks += aligned / codec.PayloadLen()
			bs.AppendBits(blocks)
			pending = pending[:copy(pending, pending[aligned:])]
		}
		if _, err := bs.FlushCompleted(out); err != nil {
			return st, fmt.Errorf("write body: %w", err)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return st, fmt.Errorf("transform pass: %w", rerr)
		}
	}
	if codec != nil && len(pending) > 0 {
		bs.AppendBits(codec.EncodeBlocks(blocks[:0], pending))
		st.Blocks++
	}
	if _, err := bs.Flush(out); err != nil {
		return st, fmt.Errorf("write body: %w", err)
	}
	st.OutputBytes = out.n
	lg.Debugf("wrote %d bytes (%d hamming blocks)", st.OutputBytes, st.Blocks)
	return st, nil
}

// ArchivePath returns the archive name for destinationBase.
func ArchivePath(destinationBase string) string {
	return destinationBase + Suffix
}

// EncodeFile compresses source into ArchivePath(destinationBase) and
// returns that path. The archive is written under a temporary name and
// renamed into place once complete.
func (e *Encoder) EncodeFile(source, destinationBase string) (path string, err error) {
	src, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("open source %q: %w", source, err)
	}
	defer src.Close()

	path = ArchivePath(destinationBase)
	tmp := path + "." + uuid.NewString() + ".part"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create archive %q: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	st, err := e.Encode(f, src)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close archive %q: %w", tmp, cerr)
	}
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", source, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename archive: %w", err)
	}
	e.config.Logger.Infof("%s: %d -> %d bytes", path, st.InputBytes, st.OutputBytes)
	return path, nil
}

// EncodeFile compresses source into destinationBase+Suffix.
func EncodeFile(source, destinationBase string, opts ...Option) (string, error) {
	return NewEncoder(opts...).EncodeFile(source, destinationBase)
}

// Coder returns the coder the Encoder uses.
func (e *Encoder) Coder() code.Kind { return e.config.Coder }
