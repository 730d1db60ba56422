package main

import "github.com/youzi001/pngCompress/cmd"

func main() {
	cmd.Execute()
}
