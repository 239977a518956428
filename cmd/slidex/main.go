package main

import "github.com/slidex/slidex-agent/internal/cli"

func main() {
	cli.Execute()
}
