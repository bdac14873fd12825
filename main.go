package main

import "github.com/KaramelBytes/dashloom-cli/cmd"

func main() {
	cmd.Execute()
}
