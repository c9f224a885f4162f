package main

import "github.com/contre95/lrcsync/src/features/cli"

func main() {
	cli.Execute()
}
