package main

import (
	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd"
	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
