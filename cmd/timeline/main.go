package main

import "github.com/jaki95/timeline-editor/internal/cli"

func main() {
	cli.Execute()
}
