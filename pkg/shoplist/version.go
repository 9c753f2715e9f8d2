// Package shoplist holds build-level facts about the shoplist module.
package shoplist

// Version is the release of the shoplist CLI and libraries.
const Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/shoplist"
