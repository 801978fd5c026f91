package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	TradeseqVersion         = "devel"
	GitRevision             = "devel"
	TradeseqVersionRevision = fmt.Sprintf("%s-%s", TradeseqVersion, GitRevision)
)
