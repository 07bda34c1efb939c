package main

import "asrs-monitor/cmd/asrs-monitor/cmd"

func main() {
	cmd.Execute()
}
