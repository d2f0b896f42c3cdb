package main

import "github.com/aweris/blobkit/cmd/blobkit/cmd"

func main() {
	cmd.Execute()
}
