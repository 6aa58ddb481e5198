package main

import "github.com/apexline-data/delta.report/cmd"

func main() {
	cmd.Execute()
}
