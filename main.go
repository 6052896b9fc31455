package main

import "nathanbeddoewebdev/sdcomfy/cmd"

func main() {
	cmd.Execute()
}
