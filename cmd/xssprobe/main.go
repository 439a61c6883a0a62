package main

import "github.com/aalvaropc/xssprobe/internal/cli"

func main() {
	cli.Execute()
}
