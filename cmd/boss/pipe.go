package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/unkn0wn-root/boss"
)

func demoValues() []boss.Value {
	return []boss.Value{
		boss.NewList(boss.Text("Foo"), boss.Text("bar")),
		boss.Text(strings.Repeat("Zz", 62)),
		boss.NewList(boss.Text("Hello"), boss.Text("world"), boss.Text("!")),
		boss.NewDict(boss.Entry{Key: boss.Text("Thats all"), Value: boss.Text("folks!")}),
	}
}

// runPipe writes the demo values into one end of an OS pipe while the
// other end is decoded and printed. The long string goes in a compression
// envelope.
func runPipe(opts boss.Options, out io.Writer) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var werr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.Close()
		werr = writeDemo(w, opts)
	}()

	rerr := boss.NewDecoder(r, opts).Each(func(v boss.Value) error {
		_, err := fmt.Fprintln(out, v)
		return err
	})
	// unblocks the writer if the reader gave up early
	_ = r.Close()
	wg.Wait()
	return errors.Join(werr, rerr)
}

func writeDemo(w io.Writer, opts boss.Options) error {
	enc := boss.NewEncoder(w, opts)
	for i, v := range demoValues() {
		var err error
		if i == 1 {
			err = enc.PutCompressed(v)
		} else {
			err = enc.Put(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
