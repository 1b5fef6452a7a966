package exec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template placeholders rewritten at dispatch time.
const (
	placeholderTarget      = "{{target}}"
	placeholderTargetsFile = "{{targets_file}}"
)

// Materialize rewrites an invocation template into a runnable command line.
// It happens at dispatch time only, with the targets the gate admitted:
// a single target is inlined into the template; multiple targets are written
// to a newline-delimited scratch file referenced by path, using the file
// template. The returned cleanup removes the scratch file and is never nil.
func Materialize(template, fileTemplate string, targets []string, scratchDir string) (string, func(), error) {
	noop := func() {}
	if len(targets) == 0 {
		return "", noop, errors.New("no targets to materialize")
	}

	if len(targets) == 1 {
		if !strings.Contains(template, placeholderTarget) {
			return "", noop, fmt.Errorf("template has no %s placeholder", placeholderTarget)
		}
		return strings.ReplaceAll(template, placeholderTarget, targets[0]), noop, nil
	}

	if fileTemplate == "" {
		return "", noop, errors.New("multiple targets but no file template")
	}
	if !strings.Contains(fileTemplate, placeholderTargetsFile) {
		return "", noop, fmt.Errorf("file template has no %s placeholder", placeholderTargetsFile)
	}

	f, err := os.CreateTemp(scratchDir, "targets-*.txt")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create scratch file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.WriteString(strings.Join(targets, "\n") + "\n"); err != nil {
		_ = f.Close()
		cleanup()
		return "", noop, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to close scratch file: %w", err)
	}

	return strings.ReplaceAll(fileTemplate, placeholderTargetsFile, filepath.ToSlash(path)), cleanup, nil
}
