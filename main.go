package main

import "github.com/frahmantamala/rahat-dashboard/cmd"

func main() {
	cmd.Execute()
}
