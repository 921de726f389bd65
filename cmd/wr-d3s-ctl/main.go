// command wr-d3s-ctl would control the WR D3S DDS phase servo; that
// personality is explicitly out of scope here (see SPEC_FULL.md §6.1).
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "not implemented: D3S personality is out of scope")
	os.Exit(1)
}
