// The main package for the crawler executable.
package main

import "github.com/moviegraph/crawler/cmd"

func main() {
	cmd.Execute()
}
