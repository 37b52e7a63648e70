package main

import "github.com/kozaktomas/face-touch/cmd"

func main() {
	cmd.Execute()
}
