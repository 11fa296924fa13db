package dig_container

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/xmu-se/crms/apps/api/echo"
	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
	emailsvc "github.com/xmu-se/crms/services/email"
	logsvc "github.com/xmu-se/crms/services/logger"
	"github.com/xmu-se/crms/storage/database"
	inmemdb "github.com/xmu-se/crms/storage/database/inmem"
	sqlxrepos "github.com/xmu-se/crms/storage/database/sqlx"
	filestore "github.com/xmu-se/crms/storage/file"
)

const engineInMem = "inmem"

type (
	DBParam struct {
		dig.In
		DB     io.Closer   `name:"db"`
		Logger core.Logger `name:"dbLogger"`
	}

	dbLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// repositories all run on the engine named by database.engine.
	repositories struct {
		dig.Out
		DB           io.Closer `name:"db"`
		UserRepo     user.Repository
		SchoolRepo   school.Repository
		CourseRepo   course.Repository
		SeminarRepo  seminar.Repository
		FixGroupRepo fixgroup.Repository
		GroupRepo    seminargroup.Repository
	}

	serverParams struct {
		dig.In
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		Storage     core.FileStorage
		UserSvc     user.ServiceInterface
		SchoolSvc   school.ServiceInterface
		CourseSvc   course.ServiceInterface
		SeminarSvc  seminar.ServiceInterface
		FixGroupSvc fixgroup.ServiceInterface
		GroupSvc    seminargroup.ServiceInterface
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newRepositories opens the configured storage engine. Postgres is created and migrated on the way.
func newRepositories(conf *core.Config, param dbLoggerParam) repositories {
	if conf.Database.Engine == engineInMem {
		param.Logger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		return repositories{
			DB:           db,
			UserRepo:     inmemdb.NewUserRepository(db),
			SchoolRepo:   inmemdb.NewSchoolRepository(db),
			CourseRepo:   inmemdb.NewCourseRepository(db),
			SeminarRepo:  inmemdb.NewSeminarRepository(db),
			FixGroupRepo: inmemdb.NewFixGroupRepository(db),
			GroupRepo:    inmemdb.NewSeminarGroupRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		param.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		param.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if err = database.Migrate(db); err != nil {
		param.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repositories{
		DB:           db,
		UserRepo:     sqlxrepos.NewUserRepository(db),
		SchoolRepo:   sqlxrepos.NewSchoolRepository(db),
		CourseRepo:   sqlxrepos.NewCourseRepository(db),
		SeminarRepo:  sqlxrepos.NewSeminarRepository(db),
		FixGroupRepo: sqlxrepos.NewFixGroupRepository(db),
		GroupRepo:    sqlxrepos.NewSeminarGroupRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newValidator returns the validator with every custom validation and its translation registered.
func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Storage:     p.Storage,
		UserSvc:     p.UserSvc,
		SchoolSvc:   p.SchoolSvc,
		CourseSvc:   p.CourseSvc,
		SeminarSvc:  p.SeminarSvc,
		FixGroupSvc: p.FixGroupSvc,
		GroupSvc:    p.GroupSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(filestore.NewLocalStorage, dig.As(new(core.FileStorage))))

	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(school.NewService, dig.As(new(school.ServiceInterface))))
	must(c.Provide(course.NewService, dig.As(new(course.ServiceInterface))))
	must(c.Provide(seminar.NewService, dig.As(new(seminar.ServiceInterface))))
	must(c.Provide(fixgroup.NewService, dig.As(new(fixgroup.ServiceInterface))))
	must(c.Provide(seminargroup.NewService, dig.As(new(seminargroup.ServiceInterface))))

	must(c.Provide(newServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
