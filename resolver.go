package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrOutsideRoot = errors.New("path escapes document root")
)

// ResolvedPath is a regular file under the document root.
type ResolvedPath struct {
	Name string
	Size int64
}

// Resolver maps request paths onto files below a document root.
type Resolver struct {
	root  string
	index string
}

func NewResolver(root, index string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document root %s is not a directory", abs)
	}
	if index == "" || strings.ContainsAny(index, `/\`) {
		return nil, fmt.Errorf("invalid index file %q", index)
	}
	return &Resolver{root: abs, index: index}, nil
}

func (r *Resolver) Root() string { return r.root }

// Resolve returns the file that rawPath names. A directory resolves to its
// index file. Paths containing ".." segments, or whose symlinks lead out of
// the root, are refused.
func (r *Resolver) Resolve(rawPath string) (ResolvedPath, error) {
	p, _, _ := strings.Cut(rawPath, "?")
	p = strings.TrimLeft(p, "/")

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return ResolvedPath{}, fmt.Errorf("%w: %s", ErrOutsideRoot, rawPath)
		}
	}

	name := filepath.Join(r.root, filepath.FromSlash(p))
	if !r.contains(name) {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrOutsideRoot, rawPath)
	}

	info, err := os.Stat(name)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, rawPath)
	}
	if info.IsDir() {
		name = filepath.Join(name, r.index)
		if info, err = os.Stat(name); err != nil {
			return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, rawPath)
		}
	}
	if !info.Mode().IsRegular() {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, rawPath)
	}

	real, err := filepath.EvalSymlinks(name)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, rawPath)
	}
	if !r.contains(real) {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrOutsideRoot, rawPath)
	}

	return ResolvedPath{Name: name, Size: info.Size()}, nil
}

func (r *Resolver) contains(name string) bool {
	rel, err := filepath.Rel(r.root, name)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
