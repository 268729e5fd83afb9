// Command tickerdesk serves and maintains cached market reports.
//
//	tickerdesk serve --port 8080
//	tickerdesk render daily history -s INFY --from 01-03-2024
//	tickerdesk warm
//	tickerdesk cache stat daily_quote_INFY html
package main

import (
	"fmt"
	"os"
)

func main() {
	c := &cli{out: os.Stdout}
	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
