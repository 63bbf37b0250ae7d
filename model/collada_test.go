package model_test

import (
	"testing"

	"github.com/devblok/karman/model"
)

const cubeFace = `
<COLLADA>
	<library_geometries>
		<geometry id="Cube-mesh" name="Cube">
			<mesh>
				<source id="Cube-mesh-positions">
					<float_array id="Cube-mesh-positions-array" count="12">1 1 -1 1 -1 -1 -1 -1 -1 -1 1 -1</float_array>
				</source>
				<source id="Cube-mesh-normals">
					<float_array id="Cube-mesh-normals-array" count="3">0 0 -1</float_array>
				</source>
				<vertices id="Cube-mesh-vertices">
					<input semantic="POSITION" source="#Cube-mesh-positions"/>
				</vertices>
				<triangles material="Material-material" count="2">
					<input semantic="VERTEX" source="#Cube-mesh-vertices" offset="0"/>
					<input semantic="NORMAL" source="#Cube-mesh-normals" offset="1"/>
					<p>0 0 2 0 3 0 0 0 1 0 2 0</p>
				</triangles>
			</mesh>
		</geometry>
	</library_geometries>
</COLLADA>
`

func TestImportColladaObject(t *testing.T) {
	obj, err := model.ImportColladaObject([]byte(cubeFace))
	if err != nil {
		t.Fatal(err)
	}

	verts := obj.Vertices()
	if len(verts) != 6 {
		t.Fatalf("incorrect number of vertices: %d", len(verts))
	}

	first := verts[0]
	if first.Pos.X() != 1 || first.Pos.Y() != 1 || first.Pos.Z() != -1 {
		t.Errorf("incorrect first position: %v", first.Pos)
	}
	if first.Normal.Z() != -1 {
		t.Errorf("incorrect first normal: %v", first.Normal)
	}
}

func TestImportColladaObjectNoGeometry(t *testing.T) {
	if _, err := model.ImportColladaObject([]byte(`<COLLADA></COLLADA>`)); err != model.ErrNoGeometry {
		t.Fatalf("expected ErrNoGeometry, got: %v", err)
	}
}

func TestImportColladaObjectBadIndex(t *testing.T) {
	doc := `
	<COLLADA>
		<library_geometries>
			<geometry id="g"><mesh>
				<source id="p"><float_array id="p-array" count="3">0 0 0</float_array></source>
				<vertices id="v"><input semantic="POSITION" source="#p"/></vertices>
				<triangles count="1">
					<input semantic="VERTEX" source="#v" offset="0"/>
					<p>0 5 0</p>
				</triangles>
			</mesh></geometry>
		</library_geometries>
	</COLLADA>
	`
	if _, err := model.ImportColladaObject([]byte(doc)); err != model.ErrBadIndex {
		t.Fatalf("expected ErrBadIndex, got: %v", err)
	}
}
