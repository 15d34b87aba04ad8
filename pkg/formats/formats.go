// Package formats provides parsers for 3D model file formats.
package formats

// Note: glTF 2.0 (JSON and GLB) is implemented in gltf.go
// Note: Wavefront OBJ is implemented in obj.go
