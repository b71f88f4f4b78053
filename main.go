package main

import "objstore/cmd"

func main() {
	cmd.Execute()
}
