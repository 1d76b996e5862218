package main

import "songbench/cmd"

func main() {
	cmd.Execute()
}
