package main

import (
	"github.com/EchoCog/aphroditecho/cmd"
)

func main() {
	cmd.Execute()
}
