package main

import "github.com/KaramelBytes/fraudlens/cmd"

func main() {
	cmd.Execute()
}
