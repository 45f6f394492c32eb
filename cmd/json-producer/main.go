package main

import (
	"os"

	"heart-streaming/internal/app"
	"heart-streaming/internal/codec"
)

func main() {
	os.Exit(app.Main("json-producer", app.Producer(codec.FormatJSON)))
}
