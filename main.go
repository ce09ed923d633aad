package main

import "EchoCanvas/cmd"

func main() {
	cmd.Execute()
}
