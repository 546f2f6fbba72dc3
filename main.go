package main

import "github.com/jmehdipour/swap-gateway/cmd"

func main() {
	cmd.Execute()
}
