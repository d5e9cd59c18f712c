package main

import "github.com/marketengine/binary-engine/cmd"

func main() {
	cmd.Execute()
}
