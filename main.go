package main

import "github.com/agentic-research/lectern/cmd"

func main() {
	cmd.Execute()
}
