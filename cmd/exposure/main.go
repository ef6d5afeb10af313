// Command exposure scores people-search listings against a reference profile
// and projects confirmed matches onto related catalogs.
//
// Usage:
//
//	exposure scan batch.json
//	exposure serve --addr :8080
//	exposure sources --category people-search
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
