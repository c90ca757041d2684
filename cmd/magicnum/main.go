// The magicnum binary assembles, executes, debugs and verifies minimal EVM
// programs that return a constant.
package main

import "github.com/solidifylabs/magicnum/magicnumcli"

func main() {
	magicnumcli.Run()
}
