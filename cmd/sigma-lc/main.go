package main

import "github.com/markuskont/go-sigma-limacharlie/cmd"

func main() {
	cmd.Execute()
}
