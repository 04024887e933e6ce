package main

import "kineticafs/internal/cli"

func main() {
	cli.Execute()
}
