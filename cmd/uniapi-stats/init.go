package main

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed .env.example
var envExampleContent string

// runInit writes the configuration template to the current directory.
func runInit() error {
	const filename = ".env.example"

	if err := os.WriteFile(filename, []byte(envExampleContent), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}

	fmt.Printf("wrote %s\n", filename)
	fmt.Println("  next:")
	fmt.Println("  1. cp .env.example .env")
	fmt.Println("  2. point API_YAML_PATH at the gateway's api.yaml")
	fmt.Println("  3. set STATS_DB_TYPE and the matching STATS_DB_* values")
	fmt.Println("  4. ./uniapi-stats")

	return nil
}
