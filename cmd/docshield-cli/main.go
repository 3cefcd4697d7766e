// docshield-cli masks and restores documents offline, without the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/docshield/docshield/internal/config"
	"github.com/docshield/docshield/internal/logger"
	"github.com/docshield/docshield/internal/masking"
	"github.com/docshield/docshield/internal/pipeline"
	"golang.org/x/term"
)

const usage = `Usage: docshield-cli <command> [flags]

Commands:
  mask      Mask a document and write the output bundle
  restore   Decrypt a restore file back to the original text
  patterns  List the built-in detector catalog

Run "docshield-cli <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "mask":
		err = runMask(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "patterns":
		err = runPatterns()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newService() *pipeline.Service {
	cfg := config.GetDefaults()
	engine := masking.NewEngine(masking.NewCatalog(), logger.NewNop().Logger)
	return pipeline.New(cfg, engine, logger.NewNop().Logger)
}

func runMask(args []string) error {
	fs := flag.NewFlagSet("mask", flag.ExitOnError)
	var (
		input    = fs.String("in", "", "Input file (.docx, .txt or .pdf)")
		output   = fs.String("out", "", "Output bundle path (default: <in>_masked.zip)")
		keywords = fs.String("keywords", "", "Keywords to mask, separated by newline, comma or semicolon")
		mode     = fs.String("mode", "", "Masking mode: full or partial")
		smart    = fs.Bool("smart", true, "Enable smart pattern detection")
	)
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("missing -in flag")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	password, err := promptPassword("Password for the restore file: ")
	if err != nil {
		return err
	}

	service := newService()
	result, err := service.MaskDocument(filepath.Base(*input), data, pipeline.Options{
		Keywords:    masking.NormalizeKeywords(*keywords),
		Mode:        masking.MaskMode(*mode),
		EnableSmart: *smart,
		Password:    password,
	})
	if err != nil {
		return err
	}

	outPath := *output
	if outPath == "" {
		base := strings.TrimSuffix(*input, filepath.Ext(*input))
		outPath = base + "_masked.zip"
	}
	if err := os.WriteFile(outPath, result.Bundle, 0o600); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	fmt.Printf("Masked %s -> %s\n", *input, outPath)
	fmt.Printf("  keywords masked: %d\n", result.Stats.ManualKeywords)
	for _, f := range result.Stats.Findings(service.Engine().Catalog()) {
		fmt.Printf("  %s: %d\n", f.Category, f.Count)
	}
	return nil
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	var (
		input  = fs.String("in", "", "Restore file (restore_*.json)")
		output = fs.String("out", "", "Output text path (default: stdout)")
	)
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("missing -in flag")
	}

	payloadJSON, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("failed to read restore file: %w", err)
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	text, _, err := newService().Restore(payloadJSON, password)
	if err != nil {
		return err
	}

	if *output == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(*output, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Restored text written to %s\n", *output)
	return nil
}

func runPatterns() error {
	catalog := masking.NewCatalog()
	for _, entry := range catalog.Entries() {
		fmt.Printf("%-18s %-8s preserve=%d  %s\n", entry.Name, entry.Mode, entry.PreserveChars, entry.Description)
	}
	return nil
}

// promptPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line read when it is not (pipes, tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}
