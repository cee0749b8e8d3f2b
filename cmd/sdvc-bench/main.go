package main

import "github.com/suutaku/go-sdvc/cmd/sdvc-bench/cmd"

func main() {
	cmd.Execute()
}
