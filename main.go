package main

import "flacdesk/cmd"

func main() {
	cmd.Execute()
}
