package main

import (
	"os"

	"github.com/tvplayer/tvplayer/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
