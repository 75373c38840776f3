package main

import "github.com/iksnae/chatvault/cmd"

func main() {
	cmd.Execute()
}
