package main

import "github.com/user-none/fmtrack/cli"

func main() {
	cli.Execute()
}
