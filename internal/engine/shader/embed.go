package shader

import _ "embed"

// ModelVertexShader transforms mesh vertices into clip space.
//
//go:embed model.vert
var ModelVertexShader string

// ModelFragmentShader shades PBR materials with the three-light rig.
//
//go:embed model.frag
var ModelFragmentShader string

// DepthVertexShader projects mesh vertices into light space for the
// shadow pass.
//
//go:embed depth.vert
var DepthVertexShader string

// DepthFragmentShader writes depth only.
//
//go:embed depth.frag
var DepthFragmentShader string
