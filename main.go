package main

import "todo-server/commands"

func main() {
	commands.Execute()
}
