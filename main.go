package main

import "github.com/retroshelf/retroshelf/cmd"

func main() {
	cmd.Execute()
}
