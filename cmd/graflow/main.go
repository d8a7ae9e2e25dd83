package main

import "github.com/graflow/graflow/internal/cli"

func main() {
	cli.Execute()
}
