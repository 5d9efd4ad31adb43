// Command currency-mcp serves the currency conversion MCP tools.
//
//	currency-mcp serve --transport http --addr :8000
//	currency-mcp convert --amount 100 --from USD --to NPR
//	currency-mcp list-tools
//	currency-mcp call --url http://localhost:8000/mcp --amount 1 --from USD --to EUR
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/currency-mcp/internal/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
