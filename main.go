package main

import "github.com/forgeqa/testforge/cmd"

func main() {
	cmd.Execute()
}
