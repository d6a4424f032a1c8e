package main

import "github.com/opencivic/civiledger/cmd"

func main() {
	cmd.Execute()
}
