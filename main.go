package main

import "github.com/theirongolddev/asleep/cmd"

func main() {
	cmd.Execute()
}
