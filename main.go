package main

import "github.com/casoon/auditmysite-studio-sub002/cmd"

func main() {
	cmd.Execute()
}
