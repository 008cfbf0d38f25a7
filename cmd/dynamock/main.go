package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dynamock-io/dynamock/internal/app/configuration"
)

func main() {
	config, err := configuration.NewFromEnv()
	if err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}

	log.Infof("starting mock server on port %d", config.Port)
	server := configuration.StartServer(&config)

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	if err := server.Close(); err != nil {
		log.Error(err)
	}
}
