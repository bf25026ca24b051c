package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/internal/server"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, conf); err != nil {
		conf.Unload()
		log.Fatalf("server stopped: %v", err)
	}
	conf.Unload()
}
