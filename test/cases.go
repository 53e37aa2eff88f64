package test

import (
	"embed"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed cases
var casesFS embed.FS

type Case struct {
	// Description is a simple description for the case file.
	Description string `yaml:"description"`
	// Records is the list of records each query runs against, in enumeration order.
	Records []CaseRecord `yaml:"records"`
	// Queries is a list of all queries to run in this case file.
	Queries []CaseQuery `yaml:"queries"`
}

type CaseRecord struct {
	ID   string         `yaml:"id"`
	Data map[string]any `yaml:"data"`
}

type CaseCondition struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

type CaseQuery struct {
	// Name is a simple description for the query.
	Name       string          `yaml:"name"`
	Conditions []CaseCondition `yaml:"where"`
	OrderBy    string          `yaml:"orderBy"`
	Desc       bool            `yaml:"desc"`
	Offset     int             `yaml:"offset"`
	Limit      int             `yaml:"limit"`
	// Expect is the list of record ids the query returns, in order.
	Expect []string `yaml:"expect"`
	// Error is true if the query is expected to fail.
	Error bool `yaml:"error"`
}

// CasePaths returns a list of all case file paths.
func CasePaths() (paths []string, _ error) {
	return paths, fs.WalkDir(casesFS, "cases", func(path string, d fs.DirEntry, err error) error {
		if filepath.Ext(path) == ".yaml" {
			paths = append(paths, path)
		}
		return err
	})
}

// LoadCase loads and parses a case file.
func LoadCase(path string) (*Case, error) {
	data, err := fs.ReadFile(casesFS, path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
