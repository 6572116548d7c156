package main

import "github.com/Alonza0314/free-rnc/cmd"

func main() {
	cmd.Execute()
}
