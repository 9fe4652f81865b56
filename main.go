package main

import "lifetrace/cmd"

func main() {
	cmd.Execute()
}
