package main

import "github.com/shandysiswandi/epimap/cmd"

func main() {
	cmd.Execute()
}
