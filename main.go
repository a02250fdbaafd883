package main

import "slawatch/cmd"

func main() {
	cmd.Run()
}
