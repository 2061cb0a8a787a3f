package main

import "github.com/timvw/pigeon/cmd"

func main() {
	cmd.Execute()
}
