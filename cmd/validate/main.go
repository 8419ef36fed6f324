package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/jwebster45206/fractured-truths/internal/seed"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var quiet bool
	flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.BoolVarP(&quiet, "quiet", "q", false, "only report failures")
	flagSet.Usage = func() {
		fmt.Fprintf(out, "Usage: validate [--quiet] <seed.yaml|seed.json>...\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return errors.New("no seed file given")
	}

	var failed []error
	for _, path := range flagSet.Args() {
		if !quiet {
			fmt.Fprintf(out, "Validating %s...\n", path)
		}
		s, err := seed.LoadFile(path)
		if err == nil {
			err = s.Validate()
		}
		if err != nil {
			failed = append(failed, fmt.Errorf("%s:\n%w", path, err))
			continue
		}
		if !quiet {
			fmt.Fprintf(out, "%s is valid (%d factions, %d entities)\n", path, len(s.Factions), len(s.Entities))
		}
	}
	return errors.Join(failed...)
}
