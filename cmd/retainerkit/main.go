// retainerkit はクライアント向け請求ポータルのAPIサーバー・ワーカー・マイグレーションを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/retainerkit/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "retainerkit: %v\n", err)
		os.Exit(1)
	}
}
