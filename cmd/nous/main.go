package main

import "github.com/erewhon/nous-sub005/internal/cli"

func main() {
	cli.Execute()
}
