package main

import "github.com/storycut/storycut/internal/cli"

func main() {
	cli.Main()
}
