// Command uploader uploads files through the upload manager and serves
// presigned S3 upload URLs.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
