package main

import (
	"os"

	"heart-streaming/internal/app"
	"heart-streaming/internal/codec"
)

func main() {
	os.Exit(app.Main("csv-consumer", app.Consumer(codec.FormatCSV)))
}
