package main

import "github.com/datacoinlabs/datacoin/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
