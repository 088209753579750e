// Command jam is a command-line client for the JumpCloud API.
package main

import "github.com/Sternrassler/jam/internal/cli"

func main() {
	cli.Execute()
}
