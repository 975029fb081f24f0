package main

import "github.com/etlkit/etl/cmd"

func main() {
	cmd.Execute()
}
