// Command nanotrace-decode reconstructs a human-readable trace from a
// ring buffer file and the producer binary that wrote it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/nanotrace/nanotrace/config"
	"github.com/nanotrace/nanotrace/decoder"
	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/producer"
)

func main() {
	var (
		cfgPath    = pflag.String("config", "", "optional nanotrace.toml to source defaults from")
		bufferPath = pflag.String("buffer", "", "path to the ring buffer file")
		binaryPath = pflag.String("binary", "", "path to the producer binary")
		locDecoder = pflag.String("loc-decoder", "", "path to the sibling loc decoder (defaults to <binary>_loc)")
		decodeLoc  = pflag.Bool("decode-loc", false, "resolve code locations in addition to strings")
	)
	pflag.Parse()

	opts := decoder.Options{
		BufferPath:     *bufferPath,
		BinaryPath:     *binaryPath,
		LocDecoderPath: *locDecoder,
		DecodeLoc:      *decodeLoc,
	}

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nanotrace-decode: %v\n", err)
			os.Exit(1)
		}
		if opts.BufferPath == "" {
			opts.BufferPath = cfg.Buffer.Path
		}
		if opts.BinaryPath == "" {
			opts.BinaryPath = cfg.Decoder.BinaryPath
		}
		if opts.LocDecoderPath == "" {
			opts.LocDecoderPath = cfg.Decoder.LocDecoderPath
		}
		if !opts.DecodeLoc {
			opts.DecodeLoc = cfg.Decoder.DecodeLoc
		}
	}

	if !pflag.CommandLine.Changed("decode-loc") && !opts.DecodeLoc {
		if os.Getenv(producer.LocEnvVar) != "" && os.Getenv(producer.LocEnvVar) != "0" {
			opts.DecodeLoc = true
		}
	}

	if err := decoder.Decode(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "nanotrace-decode: %s\n", taxonomyName(err))
		os.Exit(1)
	}
}

func taxonomyName(err error) string {
	switch {
	case errors.Is(err, nterr.ErrMissingBuffer):
		return "MissingBuffer: " + err.Error()
	case errors.Is(err, nterr.ErrMissingProducerBinary):
		return "MissingProducerBinary: " + err.Error()
	case errors.Is(err, nterr.ErrMissingLocDecoder):
		return "MissingLocDecoder: " + err.Error()
	case errors.Is(err, nterr.ErrHeaderInvalid):
		return "HeaderInvalid: " + err.Error()
	default:
		return err.Error()
	}
}
