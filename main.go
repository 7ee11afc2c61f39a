// Package main is the entry point for the mutate CLI.
package main

import "mutate.dev/pkg/mutate/cmd"

func main() {
	cmd.Execute()
}
