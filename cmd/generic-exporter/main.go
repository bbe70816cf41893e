package main

import "generic-exporter/internal/cli"

func main() {
	cli.Execute()
}
