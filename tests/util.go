// Package testutil builds an in-memory backend and fixtures for tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/services/email"
	"github.com/xmu-se/crms/services/logger"
	"github.com/xmu-se/crms/storage/database/inmem"
)

// Env is a complete backend running on the in-memory storage engine.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	MailSvc    *emailsvc.ConsoleServiceMock

	DB           *inmemdb.DB
	UserRepo     user.Repository
	SchoolRepo   school.Repository
	CourseRepo   course.Repository
	SeminarRepo  seminar.Repository
	FixGroupRepo fixgroup.Repository
	GroupRepo    seminargroup.Repository

	UserSvc     user.ServiceInterface
	SchoolSvc   school.ServiceInterface
	CourseSvc   course.ServiceInterface
	SeminarSvc  seminar.ServiceInterface
	FixGroupSvc fixgroup.ServiceInterface
	GroupSvc    seminargroup.ServiceInterface
}

// NewConfig returns the TEST config with email templates parsed; uploads go to a fresh temp dir.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Env = "TEST"
	conf.Server.DisableRequestLogs = true
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour

	dir, err := ioutil.TempDir("", "crms-upload-")
	if err != nil {
		log.Fatalf("testutil.NewConfig: %v", err)
	}
	conf.Upload.Dir = filepath.Join(dir, "upload")

	if err := core.ParseEmailTemplates(conf); err != nil {
		log.Fatalf("testutil.NewConfig: %v", err)
	}
	return conf
}

// NewValidator returns a validator with every custom validation and its en translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	if err := user.LoadCommonPasswords(); err != nil {
		log.Fatalf("testutil.NewValidator: %v", err)
	}
	return validate, translator
}

func NewEnv() *Env {
	conf := NewConfig()
	env := &Env{
		Conf:   conf,
		Logger: logsvc.NewRollbarLogger(log.New(os.Stderr, "TEST : ", log.LstdFlags), conf),
		DB:     inmemdb.Open(),
	}
	env.Validate, env.Translator = NewValidator()
	env.MailSvc = emailsvc.NewConsoleServiceMock(conf, env.Logger)

	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.SchoolRepo = inmemdb.NewSchoolRepository(env.DB)
	env.CourseRepo = inmemdb.NewCourseRepository(env.DB)
	env.SeminarRepo = inmemdb.NewSeminarRepository(env.DB)
	env.FixGroupRepo = inmemdb.NewFixGroupRepository(env.DB)
	env.GroupRepo = inmemdb.NewSeminarGroupRepository(env.DB)

	courseSvc := course.NewService(env.CourseRepo)
	seminarSvc := seminar.NewService(env.SeminarRepo, courseSvc)
	fixgroupSvc := fixgroup.NewService(env.FixGroupRepo, courseSvc)
	env.UserSvc = user.NewServiceMock(env.UserRepo, env.MailSvc, conf)
	env.SchoolSvc = school.NewService(env.SchoolRepo)
	env.CourseSvc = courseSvc
	env.SeminarSvc = seminarSvc
	env.FixGroupSvc = fixgroupSvc
	env.GroupSvc = seminargroup.NewService(env.GroupRepo, courseSvc, seminarSvc, fixgroupSvc)
	return env
}

// Fixtures

func (env *Env) CreateUser(t *testing.T, phone, name, number, typ string, pwd ...string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Phone:     phone,
		Name:      name,
		Number:    number,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(pwd) > 0 {
		require.NoError(t, usr.SetPassword(pwd[0]))
	}
	usr, err := env.UserRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (env *Env) CreateSchool(t *testing.T, name, province, city string) school.School {
	t.Helper()
	sch, err := env.SchoolRepo.CreateSchool(context.Background(), school.School{Name: name, Province: province, City: city})
	require.NoError(t, err)
	return sch
}

// CreateCourse creates a 90-day course weighed 50/50.
func (env *Env) CreateCourse(t *testing.T, teacherID int64, name string) course.Course {
	t.Helper()
	start := time.Date(2021, 2, 22, 0, 0, 0, 0, time.UTC)
	crs, err := env.CourseRepo.CreateCourse(context.Background(), course.Course{
		TeacherID:              teacherID,
		Name:                   name,
		StartDate:              start,
		EndDate:                start.AddDate(0, 0, 90),
		ReportPercentage:       50,
		PresentationPercentage: 50,
	})
	require.NoError(t, err)
	return crs
}

func (env *Env) CreateClass(t *testing.T, courseID int64, name string) course.Class {
	t.Helper()
	cls, err := env.CourseRepo.CreateClass(context.Background(), course.Class{
		CourseID: courseID,
		Name:     name,
		Site:     "Hai Yun 3-201",
		Time:     "Mon 08:00",
	})
	require.NoError(t, err)
	return cls
}

func (env *Env) Enroll(t *testing.T, classID int64, studentIDs ...int64) {
	t.Helper()
	for _, sid := range studentIDs {
		require.NoError(t, env.CourseRepo.CreateSelection(context.Background(), classID, sid))
	}
}

func (env *Env) CreateSeminar(t *testing.T, courseID int64, name string, fixed bool) seminar.Seminar {
	t.Helper()
	start := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	sem, err := env.SeminarRepo.CreateSeminar(context.Background(), seminar.Seminar{
		CourseID:  courseID,
		Name:      name,
		IsFixed:   fixed,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	return sem
}

func (env *Env) CreateTopic(t *testing.T, seminarID int64, name string, groupLimit, memberLimit int) seminar.Topic {
	t.Helper()
	tpc, err := env.SeminarRepo.CreateTopic(context.Background(), seminar.Topic{
		SeminarID:         seminarID,
		Name:              name,
		GroupNumberLimit:  groupLimit,
		GroupStudentLimit: memberLimit,
	})
	require.NoError(t, err)
	return tpc
}

func (env *Env) CreateFixGroup(t *testing.T, classID, leaderID int64, memberIDs ...int64) fixgroup.FixGroup {
	t.Helper()
	grp, err := env.FixGroupRepo.CreateFixGroup(context.Background(), fixgroup.FixGroup{
		ClassID:   classID,
		LeaderID:  leaderID,
		MemberIDs: memberIDs,
	})
	require.NoError(t, err)
	return grp
}

func (env *Env) CreateSeminarGroup(t *testing.T, seminarID, classID, leaderID int64, memberIDs ...int64) seminargroup.SeminarGroup {
	t.Helper()
	grp, err := env.GroupRepo.CreateSeminarGroup(context.Background(), seminargroup.SeminarGroup{
		SeminarID: seminarID,
		ClassID:   classID,
		LeaderID:  leaderID,
		MemberIDs: memberIDs,
	})
	require.NoError(t, err)
	return grp
}

func (env *Env) SelectTopic(t *testing.T, groupID, topicID int64) seminargroup.GroupTopic {
	t.Helper()
	gt, err := env.GroupRepo.CreateGroupTopic(context.Background(), seminargroup.GroupTopic{GroupID: groupID, TopicID: topicID}, 0)
	require.NoError(t, err)
	return gt
}
