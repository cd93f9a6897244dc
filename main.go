package main

import "github.com/gaurav-prasanna/guidepipe/cmd"

func main() {
	cmd.Execute()
}
