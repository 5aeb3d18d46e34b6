package main

import (
	"os"

	"github.com/goplus/qmk/cmd/qmk/internal"
)

func main() {
	os.Exit(internal.Execute())
}
