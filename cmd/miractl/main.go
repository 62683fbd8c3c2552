package main

import "github.com/ahmetcoskunkizilkaya/mira-backend/internal/cli"

func main() {
	cli.Execute()
}
