package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/unkn0wn-root/boss"
	"github.com/unkn0wn-root/boss/codec"
)

func runEncode(args []string, cfg config, opts boss.Options, stdin io.Reader, stdout io.Writer) error {
	var from string
	var compress, stream bool
	flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	flagSet.StringVar(&from, "from", cfg.From, "input format: json, cbor, msgpack, proto, protojson, boss")
	flagSet.BoolVar(&compress, "compress", false, "wrap every value in a compression envelope")
	flagSet.BoolVar(&stream, "stream", false, "write in stream mode (no back-references)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	in, err := input(flagSet.Args(), stdin)
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	vs, err := readValues(from, data)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	enc := boss.NewEncoder(w, opts)
	if stream {
		if err := enc.EnterStreamMode(); err != nil {
			return err
		}
	}
	for _, v := range vs {
		if compress {
			err = enc.PutCompressed(v)
		} else {
			err = enc.Put(v)
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// readValues decodes data in format from. JSON input may be a sequence of
// values; every other format holds exactly one document.
func readValues(from string, data []byte) ([]boss.Value, error) {
	if from == "json" {
		var out []boss.Value
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		for {
			var x any
			err := dec.Decode(&x)
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("json input: %w", err)
			}
			v, err := boss.FromGo(x)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	if from == "boss" {
		return boss.DecodeAll(data)
	}
	c, err := codec.ByName(from)
	if err != nil {
		return nil, err
	}
	v, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	return []boss.Value{v}, nil
}

func runDecode(args []string, cfg config, opts boss.Options, stdin io.Reader, stdout io.Writer) error {
	var to string
	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flagSet.StringVar(&to, "to", cfg.To, "output format: json, text, cbor, msgpack, proto, protojson, boss")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	write, err := writerFor(to)
	if err != nil {
		return err
	}
	in, err := input(flagSet.Args(), stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	w := bufio.NewWriter(stdout)
	err = boss.NewDecoder(in, opts).Each(func(v boss.Value) error {
		return write(w, v)
	})
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

// writerFor returns a function writing one value in format to. Line
// oriented formats end every value with a newline.
func writerFor(to string) (func(io.Writer, boss.Value) error, error) {
	if to == "text" {
		return func(w io.Writer, v boss.Value) error {
			_, err := fmt.Fprintln(w, v)
			return err
		}, nil
	}
	c, err := codec.ByName(to)
	if err != nil {
		return nil, err
	}
	newline := to == "json" || to == "protojson"
	return func(w io.Writer, v boss.Value) error {
		b, err := c.Encode(v)
		if err != nil {
			return err
		}
		if newline {
			b = append(b, '\n')
		}
		_, err = w.Write(b)
		return err
	}, nil
}
