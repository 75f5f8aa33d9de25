package main

import "github.com/RexQian/kubectl-view-allocations/cmd"

func main() {
	cmd.Execute()
}
