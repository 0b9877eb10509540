package main

import "confpress/cmd/confpress/commands"

func main() {
	commands.Execute()
}
