package main

import "github.com/derickschaefer/almanac/cmd"

func main() {
	cmd.Execute()
}
