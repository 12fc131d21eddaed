package main

import "github.com/dbarrero/terraria-launcher/cmd/terraria-updater/cmd"

func main() {
	cmd.Execute()
}
