// Command shoplist manages a local shopping list.
package main

import "github.com/mesh-intelligence/shoplist/internal/cli"

func main() {
	cli.Execute()
}
