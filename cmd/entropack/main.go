// Command entropack compresses and restores files with the entropack
// archive format.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/seiflotfy/entropack"
	"github.com/seiflotfy/entropack/freq"
)

var log = logging.MustGetLogger("entropack/cmd")

const progName = "entropack"
const usageMessageRaw = `
Usage: entropack COMMAND [OPTIONS] FILE

Commands:
  encode [-coder NAME] [-hamming K] [-chunk N] [-o BASE] FILE
	Write FILE as the archive BASE.nk (default FILE.nk).
	NAME is huffman (default) or shannon-fano. K in 1..255
	protects the body with a Hamming code.
  decode FILE.nk
	Restore FILE.nk next to it as FILE_1 (or the next free
	name).
  stats FILE
	Print symbol counts and entropy of FILE.

Options for every command:
  -config PATH
	Read defaults from a YAML file (keys: coder, hamming,
	chunkSize, cacheSize, debug).
  -debug
	Log pipeline details to standard error.

Bytes below 32 (control characters, newlines) are not encoded.
`

type nullWriter struct{}

func (n *nullWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

var leveledLogBackend logging.LeveledBackend

func startLogging() {
	backend := logging.NewLogBackend(os.Stderr, progName+": ", 0)
	formatSpec := "%{color:bold}%{level:6s}%{color:reset} %{module:-14s} | %{message}"
	formatter := logging.MustStringFormatter(formatSpec)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
	leveledLogBackend = leveled
}

func usageMessage() string {
	return strings.TrimLeft(usageMessageRaw, "\n")
}

func usageErrorf(detailFmt string, detailArgs ...interface{}) {
	detail := fmt.Sprintf(detailFmt, detailArgs...)
	fmt.Fprintf(os.Stderr, "%s: %s\n%s", progName, detail, usageMessage())
	os.Exit(64)
}

func exitError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, err.Error())
	os.Exit(1)
}

// command holds the parsed state shared by every subcommand.
type command struct {
	flags  *flag.FlagSet
	cfg    *fileConfig
	output string
}

func parseCommand(name string, args []string, encode bool) *command {
	fs := flag.NewFlagSet(progName+" "+name, flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(&nullWriter{})

	var flagged fileConfig
	var configPath, output string
	fs.StringVar(&configPath, "config", "", "")
	fs.BoolVar(&flagged.Debug, "debug", false, "")
	fs.BoolVar(&flagged.Debug, "d", false, "")
	if encode {
		fs.StringVar(&flagged.Coder, "coder", "", "")
		fs.IntVar(&flagged.Hamming, "hamming", 0, "")
		fs.IntVar(&flagged.ChunkSize, "chunk", 0, "")
		fs.StringVar(&output, "o", "", "")
	}

	argErr := fs.Parse(args)
	if argErr == flag.ErrHelp {
		io.WriteString(os.Stdout, usageMessage())
		os.Exit(0)
	} else if argErr != nil {
		usageErrorf("%s", argErr.Error())
	}
	if fs.NArg() != 1 {
		usageErrorf("%s takes exactly one FILE argument", name)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		exitError(err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			set["debug"] = true
		default:
			set[f.Name] = true
		}
	})
	cfg.merge(set, &flagged)
	if cfg.Debug {
		leveledLogBackend.SetLevel(logging.DEBUG, "")
	}
	return &command{flags: fs, cfg: cfg, output: output}
}

func runEncode(args []string) error {
	cmd := parseCommand("encode", args, true)
	opts, err := cmd.cfg.options()
	if err != nil {
		return err
	}
	src := cmd.flags.Arg(0)
	base := cmd.output
	if base == "" {
		base = src
	}
	path, err := entropack.EncodeFile(src, base, opts...)
	if err != nil {
		return err
	}
	log.Noticef("wrote %s", path)
	return nil
}

func runDecode(args []string) error {
	cmd := parseCommand("decode", args, false)
	opts, err := cmd.cfg.options()
	if err != nil {
		return err
	}
	path, err := entropack.DecodeFile(cmd.flags.Arg(0), opts...)
	if err != nil {
		return err
	}
	log.Noticef("wrote %s", path)
	return nil
}

func runStats(args []string) error {
	cmd := parseCommand("stats", args, false)
	f, err := os.Open(cmd.flags.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	chunk := cmd.cfg.ChunkSize
	if chunk <= 0 {
		chunk = entropack.DefaultChunkSize
	}
	ft, read, err := freq.ReadFrom(f, make([]byte, chunk))
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English) // For commas between thousands
	p.Printf("bytes read:      %d\n", read)
	p.Printf("symbols:         %d\n", ft.Total())
	p.Printf("distinct:        %d\n", ft.Distinct())
	p.Printf("entropy:         %.4f bits/symbol\n", ft.Entropy())
	p.Printf("max entropy:     %.4f bits/symbol\n", ft.MaxEntropy())
	if maxH := ft.MaxEntropy(); maxH > 0 {
		p.Printf("redundancy:      %.2f%%\n", 100*(1-ft.Entropy()/maxH))
	}
	p.Printf("information:     %.0f bits\n", ft.Information())
	return nil
}

func main() {
	startLogging()

	if len(os.Args) < 2 {
		usageErrorf("missing command")
	}
	var run func([]string) error
	switch os.Args[1] {
	case "encode":
		run = runEncode
	case "decode":
		run = runDecode
	case "stats":
		run = runStats
	case "-h", "-help", "--help", "help":
		io.WriteString(os.Stdout, usageMessage())
		os.Exit(0)
	default:
		usageErrorf("unknown command \"%s\"", os.Args[1])
	}
	if err := run(os.Args[2:]); err != nil {
		exitError(err)
	}
}
