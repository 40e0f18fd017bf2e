package main

import "github.com/kevsosmooth/ip-live/cmd"

func main() {
	cmd.Execute()
}
