// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loaders provides resource loaders for the asset types the
// engine ships with: raw byte blobs, images, compiled SPIR-V shaders,
// Collada models and JSON manifests that pull in other assets as
// dependencies.
package loaders

// Resource type names the bundled loaders are registered under.
const (
	RawType      = "raw"
	ImageType    = "image"
	ShaderType   = "shader"
	ModelType    = "model"
	ManifestType = "manifest"
)
