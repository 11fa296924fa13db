package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the debug server
	"time"

	"github.com/pkg/errors"

	dig_container "github.com/xmu-se/crms/apps/api/di/dig"
	echoapi "github.com/xmu-se/crms/apps/api/echo"
	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/user"
)

func startWithDig() {
	c := dig_container.New()

	err := c.Invoke(func(conf *core.Config, logger core.Logger, dbParam dig_container.DBParam, server *echoapi.Server) {
		defer func() {
			if err := dbParam.DB.Close(); err != nil {
				dbParam.Logger.Error("closing database", err)
			}
		}()

		if err := run(conf, logger, server); err != nil {
			logger.Error(err.Error(), err)
		}
		logger.Info("Application stopped")
	})
	if err != nil {
		log.Fatal(err)
	}
}

func run(conf *core.Config, logger core.Logger, server *echoapi.Server) error {
	logger.Info(fmt.Sprintf("CRMS API initializing: version %q, env %s, database %s", conf.Build, conf.Env, conf.Database.Engine))

	if err := core.ParseEmailTemplates(conf); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}
	if err := user.LoadCommonPasswords(); err != nil {
		return errors.Wrap(err, "loading common passwords")
	}

	startDebugServer(conf, logger)
	go server.Start()

	select {
	case err := <-server.Errors():
		return errors.Wrap(err, "server error")

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: shutting down", sig))
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
		logger.Info(fmt.Sprintf("server stopped in %v", time.Since(start)))
	}
	return nil
}

// startDebugServer serves /debug/vars and /debug/pprof on the default mux.
func startDebugServer(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()
}
