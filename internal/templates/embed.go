// Package templates embeds the built-in framework manifest.
package templates

import (
	"embed"
	"io/fs"
)

// frameworkManifests embeds the framework type manifests:
//   - framework/system.yaml (root object, primitives and wrapper definitions)
//
//go:embed framework
var frameworkManifests embed.FS

// FrameworkPath is the path of the framework manifest inside FrameworkFS.
const FrameworkPath = "framework/system.yaml"

// FrameworkFS returns the embedded filesystem containing framework manifests.
func FrameworkFS() fs.FS {
	return frameworkManifests
}

// FrameworkManifest returns the framework manifest content.
func FrameworkManifest() []byte {
	data, err := frameworkManifests.ReadFile(FrameworkPath)
	if err != nil {
		panic(err) // embedded at build time
	}
	return data
}
