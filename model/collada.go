// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"errors"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/karman/utility/collada"
)

// import errors
var (
	ErrNoGeometry = errors.New("model: document contains no geometry")
	ErrBadIndex   = errors.New("model: triangle index out of source bounds")
)

var defaultColor = glm.Vec4{1.0, 1.0, 1.0, 1.0}

// ImportColladaObject reads the given file contents and converts the
// first Collada geometry into the engine's internal object.
func ImportColladaObject(fileContents []byte) (Object, error) {
	doc, err := collada.Parse(fileContents)
	if err != nil {
		return nil, err
	}
	if len(doc.Geometries) == 0 {
		return nil, ErrNoGeometry
	}

	mesh := doc.Geometries[0].Mesh
	positions, err := mesh.SourceBySemantic("VERTEX")
	if err != nil {
		return nil, err
	}

	// Normals are optional, models without them render flat.
	normals, err := mesh.SourceBySemantic("NORMAL")
	if err != nil && err != collada.ErrNoSource {
		return nil, err
	}

	var (
		stride       = mesh.Triangles.Stride()
		index        = mesh.Triangles.Index
		normalOffset = -1
		vertexOffset = 0
	)
	for _, in := range mesh.Triangles.Inputs {
		switch in.Semantic {
		case "VERTEX":
			vertexOffset = int(in.Offset)
		case "NORMAL":
			normalOffset = int(in.Offset)
		}
	}

	var vertices []Vertex
	for idx := 0; idx+stride <= len(index); idx += stride {
		var vert Vertex

		pos, err := vec3At(positions.Floats.Data, index[idx+vertexOffset])
		if err != nil {
			return nil, err
		}
		vert.Pos = pos

		if normals != nil && normalOffset >= 0 {
			norm, err := vec3At(normals.Floats.Data, index[idx+normalOffset])
			if err != nil {
				return nil, err
			}
			vert.Normal = norm
		}

		vert.Color = defaultColor
		vertices = append(vertices, vert)
	}

	return NewObject(vertices), nil
}

func vec3At(data []float32, element int) (glm.Vec3, error) {
	offset := element * 3
	if offset < 0 || offset+3 > len(data) {
		return glm.Vec3{}, ErrBadIndex
	}
	return glm.Vec3{data[offset], data[offset+1], data[offset+2]}, nil
}
