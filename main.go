package main

import "github.com/notargets/picval/cmd"

func main() {
	cmd.Execute()
}
