// Command ecoresiduos aggregates the waste management surveys and exports
// their charts, tables and reports.
package main

import "ecoresiduos/internal/cli"

func main() {
	cli.Execute()
}
