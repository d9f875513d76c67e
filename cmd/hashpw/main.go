package main

import (
	"log"
	"os"

	"github.com/dmitrijs2005/abateiq-edge/internal/hashpw"
)

func main() {
	if err := hashpw.Run(os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%v", err)
	}
}
