package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"bass/driver"
	"bass/source"
)

var (
	dflag      = flag.Bool("d", false, "enable debug tracing")
	strictFlag = flag.Bool("strict", false, "promote warnings to fatal errors")
	outFlag    = flag.String("o", "", "target output file")
	tableFlag  = flag.String("table", "", "architecture table file")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bass [-d] [-strict] [-o output] [-table arch.tbl] source.asm [source2.asm ...]")
		os.Exit(1)
	}

	program, filenames, err := source.Load(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	d := driver.New(program, filenames, readArchitecture)
	d.Debug = *dflag
	d.Strict = *strictFlag
	d.TablePath = *tableFlag

	if err := d.Target.Open(*outFlag, false); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if err := d.Assemble(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := d.Target.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readArchitecture resolves a "#include <path>" reference (or the
// -table flag's own path) relative to the current working directory.
func readArchitecture(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
