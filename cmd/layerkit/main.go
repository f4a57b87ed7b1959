// Package main provides the layerkit CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("layerkit %s\n", version)
	case "encode":
		err = runEncode(os.Args[2:])
	case "train":
		err = runTrain(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "layerkit %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("layerkit - differentiable layer composition for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  encode     Tokenize text and print its Tok2Vec vectors")
	fmt.Println("  train      Train a toy word-shape tagger")
	fmt.Println("")
	fmt.Println("Tok2Vec hyperparameters are read from LAYERKIT_* environment variables.")
}
