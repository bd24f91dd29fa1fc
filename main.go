package main

import "github.com/mouncefik/nbgen/cmd"

func main() {
	cmd.Execute()
}
