package main

import "github.com/keileg/mastersproject/cmd"

func main() {
	cmd.Execute()
}
