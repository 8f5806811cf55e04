// cmd/starter/main.go
package main

import (
	"os"

	"starter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
