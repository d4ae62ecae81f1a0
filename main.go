package main

import "github.com/KaramelBytes/hcpdash/cmd"

func main() {
	cmd.Execute()
}
