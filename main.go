package main

import "github.com/motemesh/motemesh/cmd"

func main() {
	cmd.Execute()
}
