package main

import "github.com/ismoilovdevml/webhook-bridge/internal/cli"

func main() {
	cli.Execute()
}
