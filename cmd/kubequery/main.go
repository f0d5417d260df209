package main

import "github.com/opsloom/kubequery/cmd"

// version is injected at build time:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/kubequery
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
