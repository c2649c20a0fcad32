package main

import "github.com/robalobadob/rankedle/internal/cli"

func main() {
	cli.Execute()
}
