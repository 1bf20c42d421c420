package main

import (
	"log"

	"github.com/localmind/indexd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
