// Command trackerhub manages the local Tracker Hub store and serves its
// JSON API.
package main

import "github.com/mesh-intelligence/trackerhub/internal/cli"

func main() {
	cli.Execute()
}
