package main

import "servicehub/cmd/cli/command"

func main() {
	command.Execute()
}
