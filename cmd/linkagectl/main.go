// Command linkagectl is the operator CLI: offline scoring and database chores.
package main

import (
	"os"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
