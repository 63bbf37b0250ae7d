// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"github.com/devblok/karman/model"
	"github.com/devblok/karman/resource"
)

// ModelLoader imports Collada models on a background worker. XML
// parsing and vertex assembly dominate the cost, so they run in the
// prefetch phase.
type ModelLoader struct{}

// Dependencies implements resource.AsyncLoader.
func (ModelLoader) Dependencies(path string, file resource.File, params interface{}) ([]resource.ID, error) {
	return nil, nil
}

// Prefetch implements resource.AsyncLoader.
func (ModelLoader) Prefetch(path string, file resource.File, params interface{}) (interface{}, error) {
	data, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	return model.ImportColladaObject(data)
}

// Load implements resource.AsyncLoader.
func (ModelLoader) Load(prefetched interface{}, path string, file resource.File, params interface{}) (interface{}, error) {
	return prefetched, nil
}
