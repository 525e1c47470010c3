// Package e2e provides end-to-end testing utilities for the backup CLI
package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestWorkspace is a temporary directory the backup binary runs in
type TestWorkspace struct {
	Path       string
	t          *testing.T
	binaryPath string
}

// NewTestWorkspace creates a new temporary workspace for testing
func NewTestWorkspace(t *testing.T) *TestWorkspace {
	t.Helper()

	// Get binary path (build if needed)
	binaryPath := ensureBinary(t)

	return &TestWorkspace{
		Path:       t.TempDir(),
		t:          t,
		binaryPath: binaryPath,
	}
}

// ensureBinary builds the backup binary if it doesn't exist and returns its path
func ensureBinary(t *testing.T) string {
	t.Helper()

	projectRoot := getProjectRoot(t)
	binaryPath := filepath.Join(projectRoot, "backup")

	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Logf("Building backup binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to build backup binary: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

// getProjectRoot finds the project root directory
func getProjectRoot(t *testing.T) string {
	t.Helper()

	// Start from current directory and walk up to find go.mod
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

// ExitCode extracts the process exit code from a RunCommand error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// RunCommand runs a backup command in the workspace directory
func (v *TestWorkspace) RunCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := exec.Command(v.binaryPath, args...)
	cmd.Dir = v.Path

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	// Log command execution for debugging
	if t.Failed() || testing.Verbose() {
		t.Logf("Command: backup %s", strings.Join(args, " "))
		t.Logf("Working Dir: %s", v.Path)
		t.Logf("Exit Code: %v", err)
		if stdout != "" {
			t.Logf("Stdout:\n%s", stdout)
		}
		if stderr != "" {
			t.Logf("Stderr:\n%s", stderr)
		}
	}

	return stdout, stderr, err
}

// CreateFile creates a test file in the workspace directory
func (v *TestWorkspace) CreateFile(t *testing.T, relativePath, content string) string {
	t.Helper()

	fullPath := filepath.Join(v.Path, relativePath)

	// Create parent directories if needed
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directories for %s: %v", relativePath, err)
	}

	// Write file
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", relativePath, err)
	}

	return fullPath
}

// CreateFileWithSize creates a test file with specified size
func (v *TestWorkspace) CreateFileWithSize(t *testing.T, relativePath string, size int64) string {
	t.Helper()

	fullPath := filepath.Join(v.Path, relativePath)

	// Create parent directories if needed
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directories for %s: %v", relativePath, err)
	}

	// Create file with repeated content to reach desired size
	f, err := os.Create(fullPath)
	if err != nil {
		t.Fatalf("Failed to create file %s: %v", relativePath, err)
	}
	defer f.Close()

	// Write in chunks to avoid memory issues
	chunk := []byte(strings.Repeat("A", 1024))
	remaining := size
	for remaining > 0 {
		toWrite := int64(len(chunk))
		if toWrite > remaining {
			toWrite = remaining
		}
		if _, err := f.Write(chunk[:toWrite]); err != nil {
			t.Fatalf("Failed to write to file %s: %v", relativePath, err)
		}
		remaining -= toWrite
	}

	return fullPath
}

// AssertOutputContains checks if output contains expected string
func AssertOutputContains(t *testing.T, output, expected, context string) {
	t.Helper()

	if !strings.Contains(output, expected) {
		t.Errorf("%s: output does not contain expected string.\nExpected substring: %q\nActual output:\n%s",
			context, expected, output)
	}
}

// AssertOutputNotContains checks if output does not contain a string
func AssertOutputNotContains(t *testing.T, output, unexpected, context string) {
	t.Helper()

	if strings.Contains(output, unexpected) {
		t.Errorf("%s: output contains unexpected string.\nUnexpected substring: %q\nActual output:\n%s",
			context, unexpected, output)
	}
}

// AssertCommandSuccess checks if command succeeded
func AssertCommandSuccess(t *testing.T, err error, stderr, context string) {
	t.Helper()

	if err != nil {
		t.Fatalf("%s: command failed: %v\nStderr: %s", context, err, stderr)
	}
}

// AssertCommandFails checks if command failed as expected
func AssertCommandFails(t *testing.T, err error, context string) {
	t.Helper()

	if err == nil {
		t.Fatalf("%s: expected command to fail, but it succeeded", context)
	}
}

// ReadFile reads a file relative to the workspace
func (v *TestWorkspace) ReadFile(t *testing.T, relativePath string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(v.Path, relativePath))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", relativePath, err)
	}
	return string(data)
}

// AssertExitCode checks the process exit code of a finished command
func AssertExitCode(t *testing.T, err error, want int, context string) {
	t.Helper()

	if got := ExitCode(err); got != want {
		t.Fatalf("%s: exit code %d, want %d (err: %v)", context, got, want, err)
	}
}
