package main

import "github.com/oshokin/pgxn-client/cmd/pgxn-client/cmd"

func main() {
	cmd.Execute()
}
