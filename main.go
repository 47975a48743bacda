package main

import (
	"github.com/lyy289065406/arachni/cmd"
	"github.com/lyy289065406/arachni/internal/config"
)

func main() {
	config.LoadConfig()
	cmd.Execute()
}
