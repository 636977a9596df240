package main

import "github.com/pzy560117/uiexplorer/pkg/cli"

func main() {
	cli.Execute()
}
