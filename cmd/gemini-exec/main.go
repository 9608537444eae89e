package main

import "github.com/bantoinese83/gemini-exec/internal/cli"

func main() {
	cli.Execute()
}
