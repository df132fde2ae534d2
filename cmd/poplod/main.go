package main

import "github.com/arl/go-poplod/cmd/poplod/cmd"

func main() {
	cmd.Execute()
}
