// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"github.com/devblok/karman/resource"
)

// Raw is an unprocessed resource, the file contents as stored.
type Raw struct {
	Data []byte
}

// RawLoader loads any file as a Raw resource. It has no dependencies
// and no processing to speak of, which also makes it useful as a
// stand-in in tests.
type RawLoader struct{}

// Dependencies implements resource.SyncLoader.
func (RawLoader) Dependencies(path string, file resource.File, params interface{}) ([]resource.ID, error) {
	return nil, nil
}

// Load implements resource.SyncLoader.
func (RawLoader) Load(path string, file resource.File, params interface{}) (interface{}, error) {
	data, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Raw{Data: data}, nil
}
