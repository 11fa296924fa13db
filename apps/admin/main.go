package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/user"
	emailsvc "github.com/xmu-se/crms/services/email"
	logsvc "github.com/xmu-se/crms/services/logger"
	"github.com/xmu-se/crms/storage/database"
	inmemdb "github.com/xmu-se/crms/storage/database/inmem"
	sqlxrepos "github.com/xmu-se/crms/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	if err := user.LoadCommonPasswords(); err != nil {
		logger.Fatal(err.Error(), err)
	}
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{validate: validate}
	mailSvc := emailsvc.NewConsoleService(conf, logger)

	if conf.Database.Engine == "inmem" {
		db := inmemdb.Open()
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
		cli.schoolSvc = school.NewService(inmemdb.NewSchoolRepository(db))
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(err.Error(), err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		defer db.Close()
		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
		cli.schoolSvc = school.NewService(sqlxrepos.NewSchoolRepository(db))
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("\nerror: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
