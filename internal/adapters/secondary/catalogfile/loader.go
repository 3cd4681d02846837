// Package catalogfile reads the clothing asset catalog from a JSON file on
// disk, matching the wire format consumed by original_source's
// JsonAssetRetriever.
package catalogfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/outfitwx/platform/internal/core/domain"
)

// Loader reads a JSON array of catalog assets from a fixed path.
type Loader struct {
	path string
}

// NewLoader constructs a Loader for the catalog file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and parses the catalog file, returning one *domain.AssetItem
// per array entry. Each entry is validated via AssetItem.UnmarshalJSON as it
// is decoded.
func (l *Loader) Load() ([]*domain.AssetItem, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewServiceError(domain.KindNotFound,
				fmt.Sprintf("asset catalog file not found: %s", l.path), err)
		}
		return nil, domain.NewServiceError(domain.KindInternal,
			fmt.Sprintf("failed to read asset catalog file: %s", l.path), err)
	}

	var assets []*domain.AssetItem
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, domain.NewServiceError(domain.KindInternal,
			"failed to parse asset catalog file", err)
	}

	return assets, nil
}
