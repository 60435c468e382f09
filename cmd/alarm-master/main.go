package main

import "github.com/oshokin/alarm-panel/cmd/alarm-master/cmd"

func main() {
	cmd.Execute()
}
