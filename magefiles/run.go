//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and renders the bundled models offscreen.
func (Run) Render() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run render...")
	if _, err := executeCmd("go", withArgs("run", ".", "render", "-config", "engine.toml", "assets/models/cube.obj"), withStream()); err != nil {
		return err
	}
	return nil
}

// Decodes the bundled models and prints their sizes and extents.
func (Run) Inspect() error {
	models, err := modelFiles("assets/models")
	if err != nil {
		return err
	}
	args := append([]string{"run", ".", "inspect"}, models...)
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests of every package.
func (Run) Tests() error {
	return goTest()
}
