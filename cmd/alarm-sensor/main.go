package main

import "github.com/oshokin/alarm-panel/cmd/alarm-sensor/cmd"

func main() {
	cmd.Execute()
}
