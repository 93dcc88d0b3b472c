// Package upload pushes a built output directory to an R2 bucket via the
// aws CLI, and publishes a versioned index.html at the bucket root.
package upload

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Sync mirrors the output directory to s3://bucket/version/ (deleting
// stale files, skipping index.html), then rewrites the page's BASE
// constant to the version prefix and copies it to the bucket root.
func Sync(outputDir, bucket, version, endpointURL string) error {
	syncCmd := exec.Command("aws", "s3", "sync",
		outputDir,
		fmt.Sprintf("s3://%s/%s/", bucket, version),
		"--exclude", "index.html",
		"--delete",
		"--endpoint-url", endpointURL,
	)
	if err := run(syncCmd); err != nil {
		return err
	}

	indexPath := filepath.Join(outputDir, "index.html")
	content, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("error reading %s: %v", indexPath, err)
	}
	versioned := strings.Replace(string(content),
		"const BASE = '.';", fmt.Sprintf("const BASE = '%s';", version), 1)

	tmp, err := os.CreateTemp("", "index-*.html")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(versioned); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %v", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing %s: %v", tmpPath, err)
	}

	cpCmd := exec.Command("aws", "s3", "cp", tmpPath,
		fmt.Sprintf("s3://%s/index.html", bucket),
		"--content-type", "text/html",
		"--endpoint-url", endpointURL,
	)
	return run(cpCmd)
}

func run(cmd *exec.Cmd) error {
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Printf("Running: %s", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error running %s: %v", cmd.Args[0], err)
	}
	return nil
}
