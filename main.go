package main

import "github.com/naka-gawa/labpulse/cmd"

func main() {
	cmd.Execute()
}
