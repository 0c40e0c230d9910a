package main

import "balancecam/cmd"

func main() {
	cmd.Execute()
}
