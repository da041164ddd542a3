package main

import "github.com/colpress/colpress/cmd/colpress/cmd"

func main() {
	cmd.Run()
}
