package main

import "github.com/masmgr/rpmostree-toolbox/cmd"

func main() {
	cmd.Run()
}
