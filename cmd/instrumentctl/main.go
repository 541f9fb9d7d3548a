// instrumentctl drives the submission pipeline and the record store from the
// command line.
//
// Usage:
//
//	instrumentctl submit --pre-risk=HIGH --on-risk=LOW --cusip=037833100 --isin=US0378331005
//	instrumentctl retry --universe-id=42 [--key=42/cusip.csv ...]
//	instrumentctl show --universe-id=42
//	instrumentctl latest [--limit=10]
//	instrumentctl search --cusip=037833100
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
