package main

import "github.com/williamokano/bucketview/pkg/cli"

func main() {
	cli.Execute()
}
