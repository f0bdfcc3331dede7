// Command validate checks sharedspace YAML configuration files. For every file
// it reports:
//   - YAML structure and unknown keys
//   - Port range and relay limits
//   - Arena bounds (finite, ordered, non-empty floor)
//   - Ordering policy and log level
//   - Keepalive timing (ping period must fit inside write and pong waits)
//
// It can also write the default configuration as a starting point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/sharedspace/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// Notes holds informational lines; Errors holds the problems found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	cfg, err := config.LoadFile(filePath)
	if err != nil {
		result.Valid = false
		for _, line := range strings.Split(err.Error(), "\n") {
			result.Errors = append(result.Errors, line)
		}
		return result
	}

	arena := cfg.World.Arena
	width := arena.Max.X - arena.Min.X
	depth := arena.Max.Z - arena.Min.Z
	if width == 0 || depth == 0 {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Arena floor is degenerate: %.1f x %.1f", width, depth))
	} else {
		result.Notes = append(result.Notes, fmt.Sprintf("✓ Arena: %.1f x %.1f floor", width, depth))
	}

	result.Notes = append(result.Notes,
		fmt.Sprintf("✓ Keepalive: ping every %s", cfg.Relay.PingPeriod()),
		fmt.Sprintf("✓ Listen: %s", cfg.Server.Addr()),
		fmt.Sprintf("✓ Ordering: %s", cfg.Ordering()),
		fmt.Sprintf("✓ Send queue: %d frames per connection", cfg.Relay.SendQueueLimit))

	return result
}

// findConfigs returns the YAML files in dir.
func findConfigs(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func printResult(result ValidationResult) {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, note := range result.Notes {
			fmt.Println("  " + note)
		}
		return
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		fmt.Println("  ❌ " + err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate sharedspace configuration files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "directory scanned when no files are given"},
			&cli.StringFlag{Name: "write-default", Usage: "write the default configuration to this path and exit"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("write-default"); path != "" {
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		found, err := findConfigs(cmd.String("dir"))
		if err != nil {
			return fmt.Errorf("error finding config files: %w", err)
		}
		files = found
	}
	if len(files) == 0 {
		return fmt.Errorf("no configuration files found")
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)
		printResult(result)
		if !result.Valid {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return errors.New("❌ Some configurations have errors")
	}
	fmt.Println("✅ All configurations are valid!")
	return nil
}

// main validates the files given as arguments, or every YAML file in --dir,
// and exits with non-zero status if any are invalid.
func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
