// Command flowsim validates, orders and simulates workflow documents, and
// serves the same operations over HTTP.
package main

import (
	"context"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := Execute(context.Background(), cmd); err != nil {
		os.Exit(HandleError(cmd, err))
	}
}
