// Package main is the entry point for the pipekit CLI.
package main

func main() {
	Execute()
}
