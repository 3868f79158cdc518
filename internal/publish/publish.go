package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"taskbridge/internal/model"
)

type WriteOptions struct {
	IncludeAnnotations bool
	Overwrite          bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteTask writes <toDir>/tasks/<uuid>.md.
func WriteTask(t model.ViewTask, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	outDir := filepath.Join(filepath.Clean(toDir), "tasks")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	p := filepath.Join(outDir, pageName(t)+".md")
	md := RenderTaskMarkdown(t, RenderOptions{IncludeAnnotations: opt.IncludeAnnotations})
	if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{p}}, nil
}

// WriteView writes an index.md for tasks plus one page per task. It stops at the
// first error.
func WriteView(title string, tasks []model.ViewTask, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(filepath.Join(toDir, "tasks"), 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderViewIndexMarkdown(title, tasks)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}
	for _, t := range tasks {
		res, err := WriteTask(t, toDir, opt)
		if err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, res.Written...)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
