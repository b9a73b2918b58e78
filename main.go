package main

import "github.com/Manu343726/elfscope/cmd"

func main() {
	cmd.Execute()
}
