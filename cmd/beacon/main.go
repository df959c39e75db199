// beacon audits an Electron-hosted application for accessibility: it
// launches the app with a remote-debugging port, walks configured screens,
// runs the axe-core rule engine plus bespoke checkers, and writes HTML/JSON
// reports with screenshots.
//
// Usage:
//
//	beacon audit -c beacon.yaml [--pages pages.yaml] [-o reports]
//	beacon validate -c beacon.yaml
//	beacon issues [-o reports/issues]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
