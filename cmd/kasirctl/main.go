// Command kasirctl runs operator tasks against the kasir database: the
// subscription expiry sweep (for cron), migrations, and tier administration.
package main

import "os"

func main() {
	if err := newRootCmd(defaultBackend).Execute(); err != nil {
		os.Exit(1)
	}
}
