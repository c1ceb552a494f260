// Command api runs the backorder HTTP service with the default wiring.
package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/backorder/internal/app"
)

func main() {
	fx.New(app.HTTP).Run()
}
