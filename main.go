// Command jobmcp aggregates job postings from several Chinese job platforms.
package main

import (
	"github.com/Mouseminar/job-mcp/cmd"
)

func main() {
	cmd.Execute()
}
