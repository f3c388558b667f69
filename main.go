// The main package for the scraperd executable.
package main

import (
	"github.com/civicatlas/scraperd/cmd"
)

func main() {
	cmd.Execute()
}
