package main

import (
	"os"

	"github.com/habibiahmada/portfolio-api/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
