package compose

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// TreeFile is the subset of an rpm-ostree tree file the driver reads.
type TreeFile struct {
	Ref      string   `json:"ref"`
	OSName   string   `json:"osname,omitempty"`
	Repos    []string `json:"repos,omitempty"`
	Packages []string `json:"packages,omitempty"`
}

// LoadTreeFile reads and decodes the tree file at path. The file must name a ref.
func LoadTreeFile(fs afero.Fs, path string) (*TreeFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}

	var tf TreeFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tree file %s: %w", path, err)
	}
	if tf.Ref == "" {
		return nil, fmt.Errorf("tree file %s: missing \"ref\"", path)
	}
	return &tf, nil
}
