package main

import (
	"os"

	"whisper/internal/cli"
)

func main() {
	os.Exit(cli.Run("whisper", os.Args[1:]))
}
