// boss transcodes documents to and from the BOSS binary format.
//
// Usage:
//
//	boss [--config FILE] [--log-level LEVEL] encode [--from FORMAT] [--compress] [--stream] [FILE]
//	boss [--config FILE] [--log-level LEVEL] decode [--to FORMAT] [FILE]
//	boss [--config FILE] [--log-level LEVEL] pipe
//
// encode reads one document per input (JSON input may hold several
// concatenated values) and writes a BOSS stream to stdout. decode reads a
// BOSS stream and writes every value in the target format; "json" and
// "text" output one value per line. pipe runs a writer and a reader on the
// two ends of an OS pipe and prints what the reader sees.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/boss"
	bosszap "github.com/unkn0wn-root/boss/log/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var configPath, logLevel string

	flagSet := pflag.NewFlagSet("boss", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "YAML config file")
	flagSet.StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	zl, err := newZap(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	opts := boss.Options{
		Logger:           bosszap.New(zl),
		MaxDepth:         cfg.MaxDepth,
		CompressionLevel: cfg.CompressionLevel,
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return errors.New("missing command (encode, decode or pipe)")
	}
	switch rest[0] {
	case "encode":
		return runEncode(rest[1:], cfg, opts, stdin, stdout)
	case "decode":
		return runDecode(rest[1:], cfg, opts, stdin, stdout)
	case "pipe":
		return runPipe(opts, stdout)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func newZap(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// input opens the single optional file argument; "-" or none is stdin.
func input(args []string, stdin io.Reader) (io.ReadCloser, error) {
	switch {
	case len(args) == 0 || args[0] == "-":
		return io.NopCloser(stdin), nil
	case len(args) > 1:
		return nil, fmt.Errorf("expected at most one input file, got %d", len(args))
	}
	return os.Open(args[0])
}
