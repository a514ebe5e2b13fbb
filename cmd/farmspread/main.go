// Command farmspread scrapes market sales into dated settlement ledgers.
package main

import (
	"context"
	"os"

	"github.com/jwerderits/farmspread/internal/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("farmspread failed")
	}
}
