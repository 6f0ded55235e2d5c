package main

import "github.com/credlink/tokenvault/cmd/vaultctl/cmd"

func main() {
	cmd.Execute()
}
