// Command studytoday はSefariaから今日の学習データを取得し、
// ターミナルまたはWebページで表示する。
package main

import (
	"os"

	"github.com/hitoshi/studytoday/internal/app"
	"github.com/hitoshi/studytoday/internal/console"
)

func main() {
	if err := app.Run(os.Stderr, os.Stdout, os.Args[1:]); err != nil {
		console.NewPrinter(os.Stdout, os.Stderr).PrintError(err)
		os.Exit(1)
	}
}
