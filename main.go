package main

import (
	"github.com/pyneda/openeoct/cmd"
	"github.com/pyneda/openeoct/internal/config"
)

func main() {
	config.LoadConfig()
	cmd.Execute()
}
