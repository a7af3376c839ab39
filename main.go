package main

import "github.com/rotblauer/choromap/cmd"

func main() {
	cmd.Execute()
}
