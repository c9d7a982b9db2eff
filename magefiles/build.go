//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{
	"shaders/mesh.vert",
	"shaders/mesh.frag",
	"shaders/sky.vert",
	"shaders/sky.frag",
}

// Compiles every GLSL shader to SPIR-V next to its source.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the meshforge binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Building meshforge...")
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "meshforge"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, src := range shaderSources {
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
