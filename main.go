package main

import "github.com/username/painthouse/src/cli"

func main() {
	cli.Execute()
}
