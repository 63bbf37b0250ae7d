// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"encoding/json"

	"github.com/devblok/karman/resource"
)

// ManifestEntry names one asset a manifest pulls in.
type ManifestEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Manifest is a loaded asset manifest. Every listed asset is a
// dependency of the manifest, so loading the manifest loads them all
// and unloading it lets go of them.
type Manifest struct {
	Name   string          `json:"name"`
	Assets []ManifestEntry `json:"assets"`
}

// IDs returns the identities of the manifest's assets.
func (m *Manifest) IDs() []resource.ID {
	ids := make([]resource.ID, 0, len(m.Assets))
	for _, a := range m.Assets {
		ids = append(ids, resource.NewID(a.Type, a.Path, nil))
	}
	return ids
}

// ManifestLoader loads JSON asset manifests. The listed assets are
// declared as dependencies, the loading machinery brings them in
// before the manifest itself completes.
type ManifestLoader struct{}

// Dependencies implements resource.SyncLoader.
func (ManifestLoader) Dependencies(path string, file resource.File, params interface{}) ([]resource.ID, error) {
	manifest, err := parseManifest(file)
	if err != nil {
		return nil, err
	}
	return manifest.IDs(), nil
}

// Load implements resource.SyncLoader.
func (ManifestLoader) Load(path string, file resource.File, params interface{}) (interface{}, error) {
	return parseManifest(file)
}

func parseManifest(file resource.File) (*Manifest, error) {
	data, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
