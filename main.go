package main

import "github.com/encapsia/encapsia-cli/cmd"

func main() {
	cmd.Execute()
}
