package main

import (
	"github.com/habiliai/agentmemory/cmd/agentmemory/cmd"
)

func main() {
	cmd.Execute()
}
