package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"csvclean/internal/dataset"
	"csvclean/internal/datasource"
	"csvclean/internal/plan"
)

// input is a loaded CSV and its display name.
type input struct {
	Name string
	Data *dataset.Dataset
}

// load reads a local path or http(s) URL into a dataset, capped at the
// configured upload size.
func (a *app) load(ctx context.Context, loc string) (*input, error) {
	src := datasource.FromLocation(loc, a.httpClient())
	raw, err := datasource.ReadAll(ctx, src, a.cfg.Server.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	return decodeInput(datasource.NameOf(src), raw)
}

// peek reads only the first n bytes of loc and drops the trailing partial
// line, for profiling a sample of a large file.
func (a *app) peek(ctx context.Context, loc string, n int) (*input, error) {
	var (
		raw []byte
		err error
	)
	if datasource.IsURL(loc) {
		raw, err = a.httpClient().FetchFirstBytes(ctx, loc, n)
	} else {
		raw, err = readHead(ctx, loc, n)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == n {
		if i := bytes.LastIndexByte(raw, '\n'); i > 0 {
			raw = raw[:i+1]
		}
	}
	return decodeInput(datasource.NameOf(datasource.FromLocation(loc, nil)), raw)
}

func readHead(ctx context.Context, path string, n int) ([]byte, error) {
	rc, err := datasource.FromLocation(path, nil).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, int64(n)))
}

func decodeInput(name string, raw []byte) (*input, error) {
	ds, err := dataset.ReadCSV(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: could not parse csv: %w", name, err)
	}
	if ds.Width() == 0 {
		return nil, fmt.Errorf("%s: no columns found in csv", name)
	}
	return &input{Name: name, Data: ds}, nil
}

// readPlanFile decodes a plan from a .json, .yaml or .yml file. Other
// extensions are sniffed: a leading '{' means JSON.
func readPlanFile(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return plan.ParseYAML(data)
	case ".json":
		return plan.Parse(data)
	}
	if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
		return plan.Parse(data)
	}
	return plan.ParseYAML(data)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printIssues writes one line per validation issue.
func printIssues(w io.Writer, issues []plan.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}
