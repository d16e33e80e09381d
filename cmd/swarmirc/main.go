// Command swarmirc compiles textual IR files to WebAssembly modules.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	swarmir "github.com/IQBigBang/swarm-ir"
	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/irtext"
)

func main() {
	var (
		inFile  = flag.String("in", "", "Path to the IR source file")
		outFile = flag.String("o", "", "Output path (default: input with .wasm extension)")
		dump    = flag.Bool("dump", false, "Print the parsed IR and exit")
		opt     = flag.Bool("opt", false, "Run the peephole optimizer")
		sat     = flag.Bool("sat-ftoi", false, "Use saturating float-to-int conversions")
		verbose = flag.Bool("v", false, "Verbose compilation logging")
	)
	flag.Parse()

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: swarmirc -in <file.swir> [-o out.wasm] [-dump] [-opt]")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		swarmir.SetLogger(logger)
		defer logger.Sync()
	}

	if err := run(*inFile, *outFile, *dump, *opt, *sat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inFile, outFile string, dump, opt, satFtoi bool) error {
	src, err := os.ReadFile(inFile)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	conf := ir.DefaultConfig()
	conf.SaturatingFtoi = satFtoi
	m := ir.NewModule(conf)
	if err := irtext.Parse(m, string(src)); err != nil {
		return fmt.Errorf("parse IR: %w", err)
	}

	if dump {
		fmt.Print(m.Dump())
		return nil
	}

	bin, err := swarmir.CompileFullModule(m, opt)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	if outFile == "" {
		outFile = strings.TrimSuffix(inFile, ".swir") + ".wasm"
	}
	if err := os.WriteFile(outFile, bin, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
