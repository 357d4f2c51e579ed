/*
Package dsl provides a Go DSL for programmatically constructing Fable story trees.

It allows developers to define stories with a fluent builder instead of
writing markup, JSON or YAML. This is particularly useful for unit tests,
generated stories and IDE autocompletion.

Example usage:

	package main

	import (
		"github.com/aretw0/fable/pkg/dsl"
	)

	func main() {
		story := dsl.New("lighthouse")

		story.Var("visits", "0")
		story.P("Welcome to the lighthouse.").From("Keeper")
		story.Input("What is your name?").SaveTo("name").
			Field("name", "string")
		story.P("Goodbye, {{name}}!")

		// The resulting cartridge can be passed to fable.New(...)
		cart := story.Cartridge()
		_ = cart
	}
*/
package dsl
