package main

import "github.com/hyunwoo/cellvid/cmd"

func main() {
	cmd.Execute()
}
