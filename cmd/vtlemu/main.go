// vtlemu renders API Gateway mapping templates locally.
//
// # Commands
//
//	vtlemu render   Render a template against an event file
//	vtlemu serve    Start the local render server
//
// # Examples
//
//	vtlemu render -t request.vtl -e event.json --minify
//	vtlemu render -t request.vtl -e event.yaml --strict
//	vtlemu render -t request.vtl -e sam-event.json --event-format proxy
//	PORT=9000 vtlemu serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vtlemu: %v\n", err)
		os.Exit(1)
	}
}
