package main

import "github.com/coopco/remindbot/cmd"

func main() {
	cmd.Execute()
}
