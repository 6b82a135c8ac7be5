package pdfcpugraph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultConfiguration returns the default pdfcpu configuration with relaxed
// validation.
func DefaultConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Read parses a PDF into a pdfcpu context. A nil conf selects
// DefaultConfiguration.
func Read(rs io.ReadSeeker, conf *model.Configuration) (*model.Context, error) {
	if conf == nil {
		conf = DefaultConfiguration()
	}
	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx, nil
}

// ReadFile opens path and parses it.
func ReadFile(path string, conf *model.Configuration) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, conf)
}

// Write flushes staged removals and serialises the context to w.
func (g *Graph) Write(w io.Writer) error {
	if err := g.Flush(); err != nil {
		return err
	}
	if err := api.WriteContext(g.ctx, w); err != nil {
		return fmt.Errorf("pdfcpu write: %w", err)
	}
	return nil
}

// WriteFile writes the document to path through a temporary file in the
// same directory, so path is only replaced by a complete document. An
// existing file keeps its permission bits; a new one gets 0644.
func (g *Graph) WriteFile(path string) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dedup-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := g.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
