// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the engine's in-memory model representation and
// importers that produce it from interchange formats.
package model

import (
	"sync"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Object represents the engine supported model
type Object interface {

	// SetPosition sets the object's current position in space.
	// Has to be thread-safe
	SetPosition(glm.Mat4)

	// Position gets the object's current position in space.
	// Has to be thread-safe
	Position() glm.Mat4

	// SetRotation sets the object's rotation matrix.
	// Has to be thread-safe
	SetRotation(glm.Mat4)

	// Rotation gets the object's rotation matrix.
	// Has to be thread-safe
	Rotation() glm.Mat4

	// Vertices returns the vertices for Renderer use,
	// so it has to match the descriptors exactly
	Vertices() []Vertex
}

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec4
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// NewObject creates an Object from raw vertices, positioned at the
// origin.
func NewObject(vertices []Vertex) Object {
	return &object{
		position: glm.Ident4(),
		rotation: glm.Ident4(),
		vertices: vertices,
	}
}

type object struct {
	mutex    sync.RWMutex
	position glm.Mat4
	rotation glm.Mat4
	vertices []Vertex
}

// SetPosition implements interface
func (o *object) SetPosition(pos glm.Mat4) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.position = pos
}

// Position implements interface
func (o *object) Position() glm.Mat4 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.position
}

// SetRotation implements interface
func (o *object) SetRotation(rot glm.Mat4) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rotation = rot
}

// Rotation implements interface
func (o *object) Rotation() glm.Mat4 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.rotation
}

// Vertices implements interface
func (o *object) Vertices() []Vertex {
	return o.vertices
}
