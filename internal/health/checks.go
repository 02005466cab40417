// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// FileChecker checks that an optional file exists and is not empty.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}

// BinaryChecker checks that the encoder binary can be executed.
type BinaryChecker struct {
	path     string
	lookPath func(string) (string, error)
}

// NewBinaryChecker checks path, which may be a bare name looked up in PATH.
func NewBinaryChecker(path string) *BinaryChecker {
	return &BinaryChecker{path: path, lookPath: exec.LookPath}
}

func (c *BinaryChecker) Name() string { return "encoder_binary" }

func (c *BinaryChecker) Check(context.Context) CheckResult {
	resolved, err := c.lookPath(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: resolved}
}

// WritableDirChecker checks that the directory of an output file accepts
// new files. A missing directory is degraded since writers create it.
type WritableDirChecker struct {
	name string
	dir  string
}

// NewWritableDirChecker checks the parent directory of file.
func NewWritableDirChecker(name, file string) *WritableDirChecker {
	dir := ""
	if file != "" {
		dir = filepath.Dir(file)
	}
	return &WritableDirChecker{name: name, dir: dir}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(context.Context) CheckResult {
	if c.dir == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	info, err := os.Stat(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return CheckResult{Status: StatusDegraded, Message: "directory will be created: " + c.dir}
	}
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory: " + c.dir}
	}
	f, err := os.CreateTemp(c.dir, ".write_test-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "directory is not writable"}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}
