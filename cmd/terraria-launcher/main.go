package main

import "github.com/dbarrero/terraria-launcher/cmd/terraria-launcher/cmd"

func main() {
	cmd.Execute()
}
