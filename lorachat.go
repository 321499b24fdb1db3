package main

import (
	"github.com/mahlburgc/lorachat/internal"
)

func main() {
	internal.Execute()
}
